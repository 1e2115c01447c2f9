package core

import (
	"encoding/json"
	"testing"
)

func TestImportType_TextRoundTrip(t *testing.T) {
	for _, it := range []ImportType{ImportNotImportable, ImportNotInteractive, ImportWhenUnlocked, ImportWhenLockedOrUnlocked} {
		data, err := json.Marshal(TableDescriptor{Key: "Joint Coordinates", ImportType: it})
		if err != nil {
			t.Fatalf("Marshal(%v) error = %v", it, err)
		}
		var back TableDescriptor
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("Unmarshal(%s) error = %v", data, err)
		}
		if back.ImportType != it {
			t.Errorf("round trip of %v = %v", it, back.ImportType)
		}
	}
}

func TestImportType_UnmarshalRejectsUnknown(t *testing.T) {
	var it ImportType
	for _, text := range []string{"", "importable", "ImportType(7)"} {
		if err := it.UnmarshalText([]byte(text)); err == nil {
			t.Errorf("UnmarshalText(%q) error = nil", text)
		}
	}
	if ImportType(4).Valid() || ImportType(-1).Valid() || !ImportWhenUnlocked.Valid() {
		t.Error("Valid() disagrees with the four import types")
	}
}
