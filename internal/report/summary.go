package report

import (
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	shadercompat "github.com/gogpu/shadercompat"
)

// Summary formats res as one line for the given language, with grouped
// digits, e.g.
//
//	distance-field 256x256 on 11 passes: 65,536 values agree (|d| <= 0.001), max |d| 0, device 3.1ms, cpu 12.4ms
func Summary(tag language.Tag, res shadercompat.Result) string {
	p := message.NewPrinter(tag)
	v := res.Verification
	head := p.Sprintf("%s %dx%d on %d passes: ", res.Test, res.Width, res.Height, res.Passes)
	timing := p.Sprintf(", device %v, cpu %v", round(res.DeviceTime), round(res.CPUTime))
	if v.OK() {
		return head + p.Sprintf("%d values agree (%s), max |d| %g", v.Len, v.Tolerance, v.MaxAbsErr) + timing
	}
	line := head + p.Sprintf("%d of %d values differ (%s)", v.Mismatches, v.Len, v.Tolerance)
	if m := res.Mismatch; m != nil {
		line += p.Sprintf(", first at (%d, %d): device %v, cpu %v", m.X, m.Y, m.Device, m.CPU)
	}
	if res.SkippedLanes > 0 {
		line += p.Sprintf(", %d CPU lanes skipped", res.SkippedLanes)
	}
	return line + timing
}

func round(d time.Duration) time.Duration {
	switch {
	case d >= time.Second:
		return d.Round(time.Millisecond)
	case d >= time.Millisecond:
		return d.Round(100 * time.Microsecond)
	default:
		return d.Round(time.Microsecond)
	}
}
