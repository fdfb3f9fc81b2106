// Package timebase converts timestamps between rational time bases.
package timebase

import (
	"fmt"
	"math/big"
	"time"

	"github.com/kikiluvv/clipseq/pkg/util"
)

// Rational represents a rational number (numerator/denominator).
// Used for stream time bases and frame rates.
type Rational struct {
	Num int64
	Den int64
}

// Common time bases
var (
	Nanosecond = Rational{Num: 1, Den: int64(time.Second)}
	Millis     = Rational{Num: 1, Den: 1000}
	MPEG       = Rational{Num: 1, Den: 90000}
	Audio48k   = Rational{Num: 1, Den: 48000}
	Audio44k   = Rational{Num: 1, Den: 44100}
)

// New creates a rational, substituting 1 for a zero denominator.
func New(num, den int64) Rational {
	if den == 0 {
		den = 1
	}
	return Rational{Num: num, Den: den}
}

// Parse reads "num/den" (as printed by ffprobe) or a bare integer.
func Parse(s string) (Rational, error) {
	num, den, err := util.ParseRational(s)
	if err != nil {
		return Rational{}, err
	}
	r := Rational{Num: num, Den: den}
	if !r.Valid() {
		return Rational{}, fmt.Errorf("invalid rational %q", s)
	}
	return r, nil
}

// Valid reports whether both terms are positive.
func (r Rational) Valid() bool {
	return r.Num > 0 && r.Den > 0
}

// Float64 returns the floating point representation
func (r Rational) Float64() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// Invert returns den/num.
func (r Rational) Invert() Rational {
	return Rational{Num: r.Den, Den: r.Num}
}

func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

// Rescale converts pts from one time base to another, rounding half away
// from zero. Invalid time bases leave pts unchanged.
func Rescale(pts int64, from, to Rational) int64 {
	if pts == 0 || from == to || !from.Valid() || !to.Valid() {
		return pts
	}

	num := new(big.Int).Mul(big.NewInt(pts), big.NewInt(from.Num))
	num.Mul(num, big.NewInt(to.Den))
	den := new(big.Int).Mul(big.NewInt(from.Den), big.NewInt(to.Num))

	q, r := new(big.Int).QuoRem(num, den, new(big.Int))
	if r.Sign() != 0 {
		twice := new(big.Int).Abs(r)
		twice.Lsh(twice, 1)
		if twice.Cmp(den) >= 0 {
			if num.Sign() < 0 {
				q.Sub(q, big.NewInt(1))
			} else {
				q.Add(q, big.NewInt(1))
			}
		}
	}
	return q.Int64()
}

// FrameDuration is the length of one frame at frameRate, expressed in tb.
// It never returns less than 1 so frame/pts conversions stay invertible.
func FrameDuration(frameRate, tb Rational) int64 {
	if !frameRate.Valid() || !tb.Valid() {
		return 1
	}
	d := Rescale(1, frameRate.Invert(), tb)
	if d < 1 {
		return 1
	}
	return d
}

// ToDuration converts pts in tb to wall-clock time.
func ToDuration(pts int64, tb Rational) time.Duration {
	return time.Duration(Rescale(pts, tb, Nanosecond))
}

// FromDuration converts wall-clock time to pts in tb.
func FromDuration(d time.Duration, tb Rational) int64 {
	return Rescale(int64(d), Nanosecond, tb)
}
