package models

import "testing"

func TestParseLeadSchema(t *testing.T) {
	for _, valid := range []string{"legacy", "new"} {
		if _, err := ParseLeadSchema(valid); err != nil {
			t.Fatalf("%s: %v", valid, err)
		}
	}
	if _, err := ParseLeadSchema("leads_lead"); err == nil {
		t.Fatalf("table name must not parse as a schema")
	}
	if _, err := ParseLeadSchema(""); err == nil {
		t.Fatalf("empty schema must not parse")
	}
}

func TestParseRoleField(t *testing.T) {
	for _, valid := range []string{"scheduler", "manager", "closer", "expert", "handler"} {
		role, err := ParseRoleField(valid)
		if err != nil {
			t.Fatalf("%s: %v", valid, err)
		}
		// every parseable role must map to a column in both schemas
		if _, ok := legacyRoleColumns[role]; !ok {
			t.Fatalf("%s: missing legacy column", valid)
		}
		if _, ok := newRoleColumns[role]; !ok {
			t.Fatalf("%s: missing new-schema column", valid)
		}
	}
	if _, err := ParseRoleField("lawyer"); err == nil {
		t.Fatalf("unknown role must not parse")
	}
}

func TestDateStringDatetimeFallback(t *testing.T) {
	var d DateString
	if err := d.UnmarshalJSON([]byte(`"2024-03-01T15:04:05"`)); err != nil {
		t.Fatalf("datetime form must parse: %v", err)
	}
	out, err := d.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `"2024-03-01"` {
		t.Fatalf("got %s", out)
	}
}
