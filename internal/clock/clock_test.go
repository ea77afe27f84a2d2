package clock

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/park285/IgKnight-client/pkg/gamedto"
)

func TestOnlySideToMoveCountsDown(t *testing.T) {
	fc := clockwork.NewFakeClock()
	r := NewReconciler(fc)
	r.SetActive(true)
	r.Reset(Snapshot{White: 600 * time.Second, Black: 598 * time.Second, Side: gamedto.White, CapturedAt: fc.Now()})

	fc.Advance(3 * time.Second)
	got := r.Tick()
	if !got.Known {
		t.Fatalf("reading should be known")
	}
	if got.White != 597*time.Second {
		t.Fatalf("white=%v", got.White)
	}
	if got.Black != 598*time.Second {
		t.Fatalf("black=%v", got.Black)
	}
	if got.Running != gamedto.White {
		t.Fatalf("running=%s", got.Running)
	}
}

func TestSnapshotOverwritesExtrapolation(t *testing.T) {
	fc := clockwork.NewFakeClock()
	r := NewReconciler(fc)
	r.SetActive(true)
	r.Reset(Snapshot{White: 600 * time.Second, Black: 598 * time.Second, Side: gamedto.White, CapturedAt: fc.Now()})
	fc.Advance(3 * time.Second)
	r.Tick()

	r.Reset(Snapshot{White: 596 * time.Second, Black: 598 * time.Second, Side: gamedto.Black, CapturedAt: fc.Now()})
	got := r.Displayed()
	if got.White != 596*time.Second || got.Black != 598*time.Second {
		t.Fatalf("after reset got %+v", got)
	}
	fc.Advance(2 * time.Second)
	got = r.Tick()
	if got.White != 596*time.Second || got.Black != 596*time.Second {
		t.Fatalf("black should tick from its snapshot, got %+v", got)
	}
}

func TestNeverNegative(t *testing.T) {
	fc := clockwork.NewFakeClock()
	r := NewReconciler(fc)
	r.SetActive(true)
	r.Reset(Snapshot{White: 2 * time.Second, Black: time.Minute, Side: gamedto.White, CapturedAt: fc.Now()})
	fc.Advance(10 * time.Second)
	if got := r.Tick(); got.White != 0 {
		t.Fatalf("white=%v", got.White)
	}
}

func TestUnknownBeforeSnapshotAndFrozenWhenInactive(t *testing.T) {
	fc := clockwork.NewFakeClock()
	r := NewReconciler(fc)
	if r.Tick().Known {
		t.Fatalf("no snapshot yet")
	}

	r.Reset(Snapshot{White: time.Minute, Black: time.Minute, Side: gamedto.White, CapturedAt: fc.Now()})
	fc.Advance(5 * time.Second)
	if got := r.Tick(); got.White != time.Minute {
		t.Fatalf("inactive clock moved: %v", got.White)
	}

	r.SetActive(true)
	r.Tick()
	r.SetActive(false)
	frozen := r.Displayed()
	fc.Advance(5 * time.Second)
	if got := r.Tick(); got != frozen {
		t.Fatalf("display moved while inactive: %+v vs %+v", got, frozen)
	}
}

func TestCapturedAtIsReceiptNotTick(t *testing.T) {
	fc := clockwork.NewFakeClock()
	r := NewReconciler(fc)
	r.SetActive(true)
	received := fc.Now()
	fc.Advance(400 * time.Millisecond)
	r.Reset(Snapshot{White: 10 * time.Second, Black: 10 * time.Second, Side: gamedto.Black, CapturedAt: received})
	if got := r.Displayed().Black; got != 9600*time.Millisecond {
		t.Fatalf("black=%v", got)
	}
}

func TestBandsAndFormat(t *testing.T) {
	if BandFor(10*time.Second) != BandCritical {
		t.Fatalf("10s critical")
	}
	if BandFor(30*time.Second) != BandWarning {
		t.Fatalf("30s warning")
	}
	if BandFor(60*time.Second) != BandLow {
		t.Fatalf("60s low")
	}
	if BandFor(61*time.Second) != BandNormal {
		t.Fatalf("61s normal")
	}
	if Format(597*time.Second+900*time.Millisecond) != "9:57" {
		t.Fatalf("format=%s", Format(597*time.Second))
	}
}

func TestScenarioFiveSecondsIntoWhiteMove(t *testing.T) {
	fc := clockwork.NewFakeClock()
	r := NewReconciler(fc)
	r.SetActive(true)
	r.Reset(Snapshot{White: 600 * time.Second, Black: 598 * time.Second, Side: gamedto.White, CapturedAt: fc.Now()})
	fc.Advance(5000 * time.Millisecond)
	got := r.Tick()
	if got.Text(gamedto.White) != "9:55" || got.Text(gamedto.Black) != "9:58" {
		t.Fatalf("white=%s black=%s", got.Text(gamedto.White), got.Text(gamedto.Black))
	}
	if (Reading{}).Text(gamedto.White) != "--:--" {
		t.Fatalf("unknown text")
	}
}
