package clock

import (
	"fmt"
	"time"

	"github.com/park285/IgKnight-client/pkg/gamedto"
)

// Band marks how close a clock is to running out.
type Band int

const (
	BandNormal   Band = iota
	BandLow           // at or under a minute
	BandWarning       // at or under 30s
	BandCritical      // at or under 10s
)

func (b Band) String() string {
	switch b {
	case BandLow:
		return "low"
	case BandWarning:
		return "warning"
	case BandCritical:
		return "critical"
	}
	return "normal"
}

// BandFor classifies a remaining duration.
func BandFor(d time.Duration) Band {
	switch {
	case d <= 10*time.Second:
		return BandCritical
	case d <= 30*time.Second:
		return BandWarning
	case d <= time.Minute:
		return BandLow
	}
	return BandNormal
}

// Format renders m:ss, truncating partial seconds.
func Format(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// Text renders side c, or "--:--" before any snapshot.
func (r Reading) Text(c gamedto.Color) string {
	if !r.Known {
		return "--:--"
	}
	return Format(r.For(c))
}
