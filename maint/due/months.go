package due

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/teranos/pmcal/errors"
)

// MonthSet is a set of month indexes, 0 = January through 11 = December.
// The zero value is the empty set.
type MonthSet uint16

const allMonths MonthSet = 1<<12 - 1

// MonthSetOf builds a set from month indexes, ignoring anything outside 0-11.
func MonthSetOf(indexes ...int) MonthSet {
	var s MonthSet
	for _, i := range indexes {
		if i >= 0 && i < 12 {
			s |= 1 << uint(i)
		}
	}
	return s
}

// NewMonthSet builds a set from month indexes, rejecting out-of-range values.
func NewMonthSet(indexes ...int) (MonthSet, error) {
	for _, i := range indexes {
		if i < 0 || i > 11 {
			return 0, errors.WithHint(
				errors.NewInvalidRequestError("month index %d out of range", i),
				"month indexes run from 0 (January) to 11 (December)",
			)
		}
	}
	return MonthSetOf(indexes...), nil
}

// Has reports whether month index i is in the set.
func (s MonthSet) Has(i int) bool {
	return i >= 0 && i < 12 && s&(1<<uint(i)) != 0
}

// HasMonth reports whether calendar month m is in the set.
func (s MonthSet) HasMonth(m time.Month) bool {
	return s.Has(int(m) - 1)
}

// Empty reports whether no month is selected.
func (s MonthSet) Empty() bool {
	return s&allMonths == 0
}

// Len returns the number of selected months.
func (s MonthSet) Len() int {
	n := 0
	for i := 0; i < 12; i++ {
		if s.Has(i) {
			n++
		}
	}
	return n
}

// Indexes returns the selected month indexes in ascending order.
func (s MonthSet) Indexes() []int {
	out := make([]int, 0, 12)
	for i := 0; i < 12; i++ {
		if s.Has(i) {
			out = append(out, i)
		}
	}
	return out
}

// first returns the smallest selected index, or -1 when empty.
func (s MonthSet) first() int {
	return s.after(-1)
}

// after returns the smallest selected index strictly greater than i, or -1.
func (s MonthSet) after(i int) int {
	for j := i + 1; j < 12; j++ {
		if s.Has(j) {
			return j
		}
	}
	return -1
}

func (s MonthSet) String() string {
	if s.Empty() {
		return "none"
	}
	names := make([]string, 0, 12)
	for _, i := range s.Indexes() {
		names = append(names, time.Month(i+1).String()[:3])
	}
	return strings.Join(names, ",")
}

// MarshalJSON encodes the set as an ascending array of month indexes.
func (s MonthSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Indexes())
}

// UnmarshalJSON decodes an array of month indexes. Duplicates collapse;
// out-of-range indexes are rejected.
func (s *MonthSet) UnmarshalJSON(data []byte) error {
	var indexes []int
	if err := json.Unmarshal(data, &indexes); err != nil {
		return errors.Wrap(err, "month set must be an array of month indexes")
	}
	set, err := NewMonthSet(indexes...)
	if err != nil {
		return err
	}
	*s = set
	return nil
}
