package timeutil

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTimeMarshalUsesMillis(t *testing.T) {
	ts := NewTime(time.Date(2024, 1, 15, 10, 30, 0, 123456789, time.FixedZone("EET", 2*3600)))

	data, err := json.Marshal(ts)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"2024-01-15T08:30:00.123Z"` {
		t.Fatalf("unexpected output: %s", data)
	}
}

func TestTimeUnmarshal(t *testing.T) {
	var ts Time
	if err := json.Unmarshal([]byte(`"2024-01-15T10:30:00.5+02:00"`), &ts); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ts.UTC().Hour() != 8 {
		t.Fatalf("expected 08 UTC, got %v", ts.UTC())
	}

	before := ts
	if err := json.Unmarshal([]byte(`null`), &ts); err != nil {
		t.Fatalf("unmarshal null: %v", err)
	}
	if !ts.Equal(before.Time) {
		t.Fatal("expected null to preserve existing value")
	}

	if err := json.Unmarshal([]byte(`"yesterday"`), &ts); err == nil {
		t.Fatal("expected error for invalid timestamp")
	}
}

func TestNowTruncatesToMillis(t *testing.T) {
	now := Now()
	if now.Location() != time.UTC {
		t.Fatalf("expected UTC, got %v", now.Location())
	}
	if now.Nanosecond()%int(time.Millisecond) != 0 {
		t.Fatalf("expected millisecond precision, got %d ns", now.Nanosecond())
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2024-06-01 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Year() != 2024 || d.Month() != time.June || d.Day() != 1 {
		t.Fatalf("unexpected date: %v", d)
	}
	if _, err := ParseDate("01/06/2024"); err == nil {
		t.Fatal("expected error for non ISO date")
	}
}
