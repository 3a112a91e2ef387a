package adapters

import "testing"

func TestFfmpegPositionFormatsFractionalSeconds(t *testing.T) {
	cases := map[float64]string{
		0:       "0.000",
		1.5:     "1.500",
		90.25:   "90.250",
		12.3456: "12.345",
	}
	for seconds, want := range cases {
		if got := ffmpegPosition(seconds); got != want {
			t.Errorf("ffmpegPosition(%v) = %q, want %q", seconds, got, want)
		}
	}
}

func TestPathPositionFormatsHoursMinutesSecondsMillis(t *testing.T) {
	cases := map[float64]string{
		0:      "00h00m00s000ms",
		65.5:   "00h01m05s500ms",
		3661.2: "01h01m01s200ms",
	}
	for seconds, want := range cases {
		if got := pathPosition(seconds); got != want {
			t.Errorf("pathPosition(%v) = %q, want %q", seconds, got, want)
		}
	}
}
