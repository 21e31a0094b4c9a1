package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"habit-tracker-bot/internal/model"
)

func at(d, h, m int) time.Time {
	return time.Date(2024, time.March, d, h, m, 0, 0, time.UTC)
}

func TestCheckinEndToEnd(t *testing.T) {
	ctx := context.Background()
	h := newHarness()

	begin, err := h.checkin.Begin(ctx, 1, model.IntentCheck, at(1, 9, 0))
	require.NoError(t, err)
	assert.Equal(t, BeginAwaitingProof, begin.Status)
	assert.True(t, model.SameDay(day(1), begin.Date))
	intent, ok := h.intents.get(1)
	require.True(t, ok)
	assert.Equal(t, model.IntentCheck, intent)

	res, err := h.checkin.Submit(ctx, Submission{UserID: 1, ChatID: 10, Proof: model.ProofPhoto, At: at(1, 9, 5)})
	require.NoError(t, err)
	assert.Equal(t, SubmitRecorded, res.Status)
	require.NotNil(t, res.Record)
	assert.True(t, model.SameDay(day(1), res.Record.Date))
	assert.Equal(t, model.ActionTask, res.Record.Action)
	assert.Equal(t, model.ProofPhoto, res.Record.Proof)
	assert.Equal(t, model.NewClock(9, 5, 0), res.Record.Time)
	assert.InDelta(t, 99.01, res.Rating, 1e-9)
	assert.Nil(t, res.Miss)

	_, ok = h.intents.get(1)
	assert.False(t, ok, "state returns to idle")
	assert.Equal(t, 1, h.activity.count())
}

func TestBeginAlreadyRecorded(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	h.seedTask(1, 10, day(1), model.NewClock(8, 0, 0), model.ProofPhoto)
	require.NoError(t, h.intents.SetIntent(ctx, 1, model.IntentDebt))

	res, err := h.checkin.Begin(ctx, 1, model.IntentCheck, at(1, 20, 0))
	require.NoError(t, err)
	assert.Equal(t, BeginAlreadyRecorded, res.Status)

	_, ok := h.intents.get(1)
	assert.False(t, ok, "refused command leaves the user idle")
}

func TestMediaAfterAlreadyRecordedIsIgnored(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	h.seedTask(1, 10, day(5), model.NewClock(8, 0, 0), model.ProofPhoto)

	res, err := h.checkin.Begin(ctx, 1, model.IntentDebt, at(5, 20, 0))
	require.NoError(t, err)
	require.Equal(t, BeginAwaitingProof, res.Status)

	res, err = h.checkin.Begin(ctx, 1, model.IntentCheck, at(5, 20, 1))
	require.NoError(t, err)
	require.Equal(t, BeginAlreadyRecorded, res.Status)

	sub, err := h.checkin.Submit(ctx, Submission{UserID: 1, ChatID: 10, Proof: model.ProofPhoto, At: at(5, 20, 2)})
	require.NoError(t, err)
	assert.Equal(t, SubmitIgnored, sub.Status)
	assert.Equal(t, 1, h.activity.count(), "no debt record for day 4")
}

func TestBeginDebtTargetsYesterday(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	h.seedTask(1, 10, day(4), model.NewClock(8, 0, 0), model.ProofPhoto)

	res, err := h.checkin.Begin(ctx, 1, model.IntentDebt, at(5, 10, 0))
	require.NoError(t, err)
	assert.Equal(t, BeginAlreadyRecorded, res.Status)

	res, err = h.checkin.Begin(ctx, 1, model.IntentCheck, at(5, 10, 0))
	require.NoError(t, err)
	assert.Equal(t, BeginAwaitingProof, res.Status)
}

func TestBeginOverwritesPendingIntent(t *testing.T) {
	ctx := context.Background()
	h := newHarness()

	_, err := h.checkin.Begin(ctx, 1, model.IntentCheck, at(5, 10, 0))
	require.NoError(t, err)
	_, err = h.checkin.Begin(ctx, 1, model.IntentDebt, at(5, 10, 1))
	require.NoError(t, err)

	res, err := h.checkin.Submit(ctx, Submission{UserID: 1, ChatID: 10, Proof: model.ProofVideo, At: at(5, 10, 2)})
	require.NoError(t, err)
	require.Equal(t, SubmitRecorded, res.Status)
	assert.Equal(t, model.IntentDebt, res.Intent)
	assert.True(t, model.SameDay(day(4), res.Record.Date))
}

func TestBeginRejectsUnknownIntent(t *testing.T) {
	h := newHarness()
	_, err := h.checkin.Begin(context.Background(), 1, model.Intent("later"), at(5, 10, 0))
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestSubmitWithoutIntentIsIgnored(t *testing.T) {
	h := newHarness()
	res, err := h.checkin.Submit(context.Background(), Submission{UserID: 1, ChatID: 10, Proof: model.ProofPhoto, At: at(1, 9, 0)})
	require.NoError(t, err)
	assert.Equal(t, SubmitIgnored, res.Status)
	assert.Equal(t, 0, h.activity.count())
	assert.Equal(t, 0, h.ratings.saves)
}

func TestSubmitWrongFormatClearsIntent(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	_, err := h.checkin.Begin(ctx, 1, model.IntentCheck, at(1, 9, 0))
	require.NoError(t, err)

	res, err := h.checkin.Submit(ctx, Submission{UserID: 1, ChatID: 10, Proof: model.ProofOther, At: at(1, 9, 1)})
	require.NoError(t, err)
	assert.Equal(t, SubmitWrongFormat, res.Status)
	assert.Equal(t, 0, h.activity.count())
	_, ok := h.intents.get(1)
	assert.False(t, ok)

	res, err = h.checkin.Submit(ctx, Submission{UserID: 1, ChatID: 10, Proof: model.ProofPhoto, At: at(1, 9, 2)})
	require.NoError(t, err)
	assert.Equal(t, SubmitIgnored, res.Status)
}

func TestSubmitDuplicateHasNoEffects(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	require.NoError(t, h.intents.SetIntent(ctx, 1, model.IntentCheck))
	h.seedTask(1, 10, day(1), model.NewClock(8, 0, 0), model.ProofPhoto)

	res, err := h.checkin.Submit(ctx, Submission{UserID: 1, ChatID: 10, Proof: model.ProofPhoto, At: at(1, 9, 0)})
	require.NoError(t, err)
	assert.Equal(t, SubmitDuplicate, res.Status)
	assert.Equal(t, 1, h.activity.count())
	assert.Equal(t, 0, h.ratings.saves)
}

func TestSubmitAfterGapDetectsMiss(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	h.seedTask(1, 10, day(3), model.NewClock(8, 0, 0), model.ProofPhoto)
	h.seedTask(2, 10, day(3), model.NewClock(8, 0, 0), model.ProofPhoto)

	_, err := h.checkin.Begin(ctx, 1, model.IntentCheck, at(5, 9, 0))
	require.NoError(t, err)
	res, err := h.checkin.Submit(ctx, Submission{UserID: 1, ChatID: 10, Proof: model.ProofPhoto, At: at(5, 9, 1)})
	require.NoError(t, err)
	require.Equal(t, SubmitRecorded, res.Status)
	require.NotNil(t, res.Miss)
	assert.True(t, model.SameDay(day(3), res.Miss.PreviousDate))
	assert.True(t, res.Miss.HasGift)
	assert.Equal(t, int64(2), res.Miss.GiftTo)

	// success then miss
	want := Smooth(Smooth(DefaultRating, SignalSuccess, DefaultRatingAlpha), SignalMiss, DefaultRatingAlpha)
	assert.InDelta(t, want, res.Rating, 1e-9)
}

func TestConcurrentPassesRecordOnce(t *testing.T) {
	ctx := context.Background()
	h := newHarness()

	const n = 8
	var wg sync.WaitGroup
	statuses := make([]PassStatus, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := h.checkin.Pass(ctx, 1, 10, model.ActionForceMajeure, at(1, 9, i))
			errs[i] = err
			if err == nil {
				statuses[i] = res.Status
			}
		}(i)
	}
	wg.Wait()

	recorded := 0
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		if statuses[i] == PassRecorded {
			recorded++
		}
	}
	assert.Equal(t, 1, recorded)
	assert.Equal(t, 1, h.activity.count())
}

func TestPass(t *testing.T) {
	ctx := context.Background()
	h := newHarness()

	res, err := h.checkin.Pass(ctx, 1, 10, model.ActionPass, at(2, 21, 0))
	require.NoError(t, err)
	assert.Equal(t, PassRecorded, res.Status)
	assert.InDelta(t, 98.99, res.Rating, 1e-9)

	res, err = h.checkin.Pass(ctx, 1, 10, model.ActionForceMajeure, at(2, 22, 0))
	require.NoError(t, err)
	assert.Equal(t, PassAlreadyRecorded, res.Status)

	res, err = h.checkin.Pass(ctx, 1, 10, model.ActionForceMajeure, at(3, 22, 0))
	require.NoError(t, err)
	assert.Equal(t, PassRecorded, res.Status)
	assert.InDelta(t, 98.99, res.Rating, 1e-9, "force majeure leaves the rating")

	_, err = h.checkin.Pass(ctx, 1, 10, model.ActionTask, at(4, 22, 0))
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestCheckinUsesConfiguredTimezone(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	moscow := time.FixedZone("MSK", 3*3600)
	h.checkin.timezone = moscow

	// 22:30 UTC on March 1 is 01:30 on March 2 in Moscow.
	_, err := h.checkin.Begin(ctx, 1, model.IntentCheck, at(1, 22, 30))
	require.NoError(t, err)
	res, err := h.checkin.Submit(ctx, Submission{UserID: 1, ChatID: 10, Proof: model.ProofVideo, At: at(1, 22, 30)})
	require.NoError(t, err)
	require.Equal(t, SubmitRecorded, res.Status)
	assert.True(t, model.SameDay(day(2), res.Record.Date))
	assert.Equal(t, model.NewClock(1, 30, 0), res.Record.Time)
}

// TestStateMachineProperty drives random command and media sequences and checks that
// records only appear for valid media following an intent.
func TestStateMachineProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		h := newHarness()

		steps := rapid.IntRange(1, 30).Draw(t, "steps")
		pending := false
		for i := 0; i < steps; i++ {
			when := at(1, 0, 0).Add(time.Duration(i) * 7 * time.Hour)
			switch rapid.IntRange(0, 2).Draw(t, "event") {
			case 0:
				intent := rapid.SampledFrom([]model.Intent{model.IntentCheck, model.IntentDebt}).Draw(t, "intent")
				res, err := h.checkin.Begin(ctx, 1, intent, when)
				if err != nil {
					t.Fatalf("begin: %v", err)
				}
				pending = res.Status == BeginAwaitingProof
			default:
				proof := rapid.SampledFrom([]model.ProofKind{model.ProofPhoto, model.ProofVideo, model.ProofOther}).Draw(t, "proof")
				before := h.activity.count()
				res, err := h.checkin.Submit(ctx, Submission{UserID: 1, ChatID: 10, Proof: proof, At: when})
				if err != nil {
					t.Fatalf("submit: %v", err)
				}
				after := h.activity.count()
				switch {
				case !pending && res.Status != SubmitIgnored:
					t.Fatalf("media without intent produced %d", res.Status)
				case !proof.Valid() && after != before:
					t.Fatalf("invalid proof wrote a record")
				case res.Status == SubmitRecorded && after != before+1:
					t.Fatalf("recorded without a ledger write")
				}
				pending = false
			}
		}
	})
}
