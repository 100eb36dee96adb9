package models

import "testing"

func TestResolveEmployeeName(t *testing.T) {
	byId := map[string]string{"12": "Dana Levi", "7": "Amir Cohen"}

	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"id string resolves to display name", "12", "Dana Levi"},
		{"unknown value kept as the name itself", "Noa Barak", "Noa Barak"},
		{"whitespace trimmed before lookup", " 7 ", "Amir Cohen"},
		{"empty stays empty", "", ""},
		{"blank stays empty", "   ", ""},
	}
	for _, tc := range cases {
		if got := ResolveEmployeeName(tc.raw, byId); got != tc.want {
			t.Fatalf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestResolveEmployeeNameById(t *testing.T) {
	byId := map[string]string{"12": "Dana Levi"}

	if got := ResolveEmployeeNameById(intPtr(12), byId); got != "Dana Levi" {
		t.Fatalf("got %q", got)
	}
	if got := ResolveEmployeeNameById(nil, byId); got != "" {
		t.Fatalf("nil FK: got %q", got)
	}
	if got := ResolveEmployeeNameById(intPtr(99), byId); got != "" {
		t.Fatalf("dangling FK: got %q", got)
	}
}

func TestBuildEmployeeIdMap(t *testing.T) {
	employees := []*Employee{
		{ID: 12, DisplayName: "Dana Levi"},
		nil,
		{ID: 7, DisplayName: "Amir Cohen"},
	}
	byId := BuildEmployeeIdMap(employees)
	if len(byId) != 2 {
		t.Fatalf("got %d entries", len(byId))
	}
	if byId["12"] != "Dana Levi" {
		t.Fatalf("got %q", byId["12"])
	}
}
