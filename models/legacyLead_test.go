package models

import "testing"

func TestComputeSubLeadNumbers(t *testing.T) {
	siblings := []*LegacyLead{
		{ID: 5, MasterId: intPtr(2)},
		{ID: 3, MasterId: intPtr(2)},
		{ID: 9, MasterId: intPtr(2)},
	}

	numbers := ComputeSubLeadNumbers([]int{2}, siblings)

	want := map[int]string{
		2: "2/1",
		3: "3/2",
		5: "5/3",
		9: "9/4",
	}
	for id, expected := range want {
		if got := numbers[id]; got != expected {
			t.Fatalf("lead %d: got %q, want %q", id, got, expected)
		}
	}
}

func TestComputeSubLeadNumbersOrderIndependent(t *testing.T) {
	forward := []*LegacyLead{
		{ID: 3, MasterId: intPtr(2)},
		{ID: 5, MasterId: intPtr(2)},
		{ID: 9, MasterId: intPtr(2)},
	}
	shuffled := []*LegacyLead{
		{ID: 9, MasterId: intPtr(2)},
		{ID: 3, MasterId: intPtr(2)},
		{ID: 5, MasterId: intPtr(2)},
	}

	a := ComputeSubLeadNumbers([]int{2}, forward)
	b := ComputeSubLeadNumbers([]int{2}, shuffled)

	for id := range a {
		if a[id] != b[id] {
			t.Fatalf("lead %d: suffix depends on fetch order (%q vs %q)", id, a[id], b[id])
		}
	}
}

func TestComputeSubLeadNumbersNoSiblings(t *testing.T) {
	numbers := ComputeSubLeadNumbers([]int{7}, nil)
	if _, ok := numbers[7]; ok {
		t.Fatalf("master without siblings must keep its bare number")
	}
}

func TestComputeSubLeadNumbersUsesLeadNumber(t *testing.T) {
	siblings := []*LegacyLead{
		{ID: 30, MasterId: intPtr(20), LeadNumber: 7100},
	}
	numbers := ComputeSubLeadNumbers([]int{20}, siblings)
	if got := numbers[30]; got != "7100/2" {
		t.Fatalf("sub-lead should display its lead number: got %q", got)
	}
}
