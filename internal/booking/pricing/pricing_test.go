package pricing

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSplit(t *testing.T) {
	Convey("Given the default commission schedule", t, func() {
		s := DefaultSchedule()

		Convey("A non-pro talent booked for 3 hours at 50 per hour", func() {
			total, err := RateAmount(50, 180)
			So(err, ShouldBeNil)
			commission, earnings, err := Split(total, s.RateFor(false))
			So(err, ShouldBeNil)
			So(total, ShouldEqual, 150)
			So(commission, ShouldEqual, 30)
			So(earnings, ShouldEqual, 120)
		})

		Convey("A pro talent pays the reduced rate", func() {
			So(s.RateFor(true), ShouldEqual, 10)
			commission, earnings, err := Split(150, s.RateFor(true))
			So(err, ShouldBeNil)
			So(commission, ShouldEqual, 15)
			So(earnings, ShouldEqual, 135)
		})

		Convey("Commission plus earnings equals the total for every rate", func() {
			totals := []int64{0, 1, 7, 99, 101, 150, 333, 1001, 99999, 123456789}
			for rate := 0; rate <= 100; rate++ {
				for _, total := range totals {
					commission, earnings, err := Split(total, rate)
					So(err, ShouldBeNil)
					So(commission+earnings, ShouldEqual, total)
					So(commission, ShouldBeGreaterThanOrEqualTo, 0)
					So(earnings, ShouldBeGreaterThanOrEqualTo, 0)
				}
			}
		})

		Convey("Rates outside 0..100 are rejected", func() {
			_, _, err := Split(100, 101)
			So(err, ShouldEqual, ErrInvalidRate)
			_, _, err = Split(100, -1)
			So(err, ShouldEqual, ErrInvalidRate)
			So(Schedule{StandardPercent: 120}.Validate(), ShouldNotBeNil)
		})

		Convey("Totals near the int64 limit are rejected instead of wrapping", func() {
			_, _, err := Split(900000000000000000, 20)
			So(err, ShouldEqual, ErrAmountTooLarge)

			commission, earnings, err := Split(MaxAmount, 100)
			So(err, ShouldBeNil)
			So(commission, ShouldEqual, MaxAmount)
			So(earnings, ShouldEqual, 0)

			commission, earnings, err = Split(MaxAmount, 20)
			So(err, ShouldBeNil)
			So(commission, ShouldBeGreaterThan, 0)
			So(commission+earnings, ShouldEqual, MaxAmount)
		})
	})
}

func TestRateAmount(t *testing.T) {
	cases := []struct {
		name    string
		rate    int64
		minutes int
		want    int64
		err     error
	}{
		{"three hours", 50, 180, 150, nil},
		{"ninety minutes", 5000, 90, 7500, nil},
		{"rounds half up", 1, 30, 1, nil},
		{"rounds down", 1, 29, 0, nil},
		{"zero duration", 5000, 0, 0, nil},
		{"negative rate", -10, 60, 0, nil},
		{"overflowing product", 1 << 60, 600, 0, ErrAmountTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := RateAmount(tc.rate, tc.minutes)
			if err != tc.err {
				t.Fatalf("expected error %v got %v", tc.err, err)
			}
			if got != tc.want {
				t.Fatalf("expected %d got %d", tc.want, got)
			}
		})
	}
}
