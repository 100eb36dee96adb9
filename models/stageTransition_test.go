package models

import (
	"testing"
	"time"
)

func datePtr(t time.Time) *time.Time { return &t }
func intPtr(n int) *int              { return &n }
func strPtr(s string) *string        { return &s }

func TestResolveStageDatesLatestWins(t *testing.T) {
	early := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

	index := ResolveStageDates([]*StageTransition{
		{ID: 1, LeadId: intPtr(6), Stage: StageSignedAgreement, Date: datePtr(early)},
		{ID: 2, LeadId: intPtr(6), Stage: StageSignedAgreement, Date: datePtr(late)},
	})

	got, ok := index.Legacy[6]
	if !ok {
		t.Fatalf("lead 6 missing from index")
	}
	if !got.Equal(late) {
		t.Fatalf("expected %v, got %v", late, got)
	}
}

func TestResolveStageDatesCdateFallback(t *testing.T) {
	cdate := time.Date(2024, 2, 10, 9, 30, 0, 0, time.UTC)

	index := ResolveStageDates([]*StageTransition{
		{ID: 7, LeadId: intPtr(3), Stage: StageSignedAgreement, Date: nil, Cdate: cdate},
	})

	if got := index.Legacy[3]; !got.Equal(cdate) {
		t.Fatalf("expected cdate fallback %v, got %v", cdate, got)
	}
}

func TestResolveStageDatesTieBrokenByLargerId(t *testing.T) {
	same := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	later := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)

	// both rows carry the same date; the larger row id's cdate must not leak
	// through, only its effective date matters and they are equal, so the
	// larger id wins deterministically regardless of input order
	a := &StageTransition{ID: 10, LeadId: intPtr(9), Date: datePtr(same), Cdate: same}
	b := &StageTransition{ID: 11, LeadId: intPtr(9), Date: datePtr(same), Cdate: later}

	forward := ResolveStageDates([]*StageTransition{a, b})
	reversed := ResolveStageDates([]*StageTransition{b, a})

	if !forward.Legacy[9].Equal(reversed.Legacy[9]) {
		t.Fatalf("tie resolution depends on input order: %v vs %v", forward.Legacy[9], reversed.Legacy[9])
	}
	if !forward.Legacy[9].Equal(same) {
		t.Fatalf("expected winner date %v, got %v", same, forward.Legacy[9])
	}
}

func TestResolveStageDatesSplitsSchemas(t *testing.T) {
	when := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	newWhen := time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC)

	index := ResolveStageDates([]*StageTransition{
		{ID: 1, LeadId: intPtr(6), Stage: StageSignedAgreement, Date: datePtr(when)},
		{ID: 2, NewleadId: strPtr("42"), Stage: StageSignedAgreement, Date: datePtr(newWhen)},
		{ID: 3, Stage: StageSignedAgreement, Date: datePtr(when)}, // orphan row, no key
	})

	if len(index.Legacy) != 1 || len(index.New) != 1 {
		t.Fatalf("unexpected index sizes: legacy=%d new=%d", len(index.Legacy), len(index.New))
	}
	if !index.New["42"].Equal(newWhen) {
		t.Fatalf("new lead date: got %v", index.New["42"])
	}
}

func TestDateStringBounds(t *testing.T) {
	var d DateString
	if err := d.UnmarshalJSON([]byte(`"2024-03-01"`)); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	from, err := d.StartOfDayUTC("UTC")
	if err != nil {
		t.Fatalf("StartOfDayUTC: %v", err)
	}
	to, err := d.StartOfNextDayUTC("UTC")
	if err != nil {
		t.Fatalf("StartOfNextDayUTC: %v", err)
	}

	if !from.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("from: got %v", from)
	}
	if !to.Equal(time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("to: got %v", to)
	}

	// a sign at 23:59 on the end day is inside [from, to)
	lastMinute := time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC)
	if lastMinute.Before(from) || !lastMinute.Before(to) {
		t.Fatalf("end day must be fully included")
	}
}
