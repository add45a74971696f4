package profile

import (
	"testing"
)

func testConfig(name, owner string) *TestConfiguration {
	return &TestConfiguration{
		Name:       name,
		Owner:      owner,
		APIVersion: "OBPv4.1.0",
		BankID:     "gh.29.uk",
		AccountID:  "acc-1",
	}
}

func TestValidate(t *testing.T) {
	standards := []string{"OBP", "UK", "BG"}

	tests := []struct {
		name    string
		mutate  func(*TestConfiguration)
		wantErr bool
	}{
		{"valid", func(tc *TestConfiguration) {}, false},
		{"valid UK", func(tc *TestConfiguration) { tc.APIVersion = "UKv2.0" }, false},
		{"valid BG", func(tc *TestConfiguration) { tc.APIVersion = "BGv1.3" }, false},
		{"missing name", func(tc *TestConfiguration) { tc.Name = "" }, true},
		{"missing owner", func(tc *TestConfiguration) { tc.Owner = "" }, true},
		{"bare version", func(tc *TestConfiguration) { tc.APIVersion = "v4.1.0" }, true},
		{"lowercase standard", func(tc *TestConfiguration) { tc.APIVersion = "obpv4.1.0" }, true},
		{"unlisted standard", func(tc *TestConfiguration) { tc.APIVersion = "XXv1.0" }, true},
		{"no version digits", func(tc *TestConfiguration) { tc.APIVersion = "OBPv" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := testConfig("cfg", "simon")
			tt.mutate(tc)
			err := tc.Validate(standards)
			if tt.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestTokenValues(t *testing.T) {
	tc := testConfig("cfg", "simon")
	values := tc.TokenValues()
	if values["BANK_ID"] != "gh.29.uk" {
		t.Fatalf("BANK_ID = %q", values["BANK_ID"])
	}
	if values["API_VERSION"] != "OBPv4.1.0" {
		t.Fatalf("API_VERSION = %q", values["API_VERSION"])
	}
	// Empty values stay present so the resolver can default them.
	if _, ok := values["VIEW_ID"]; !ok {
		t.Fatal("VIEW_ID missing from token values")
	}
}

func TestAttributeValuesSkipsEmpty(t *testing.T) {
	tc := testConfig("cfg", "simon")
	attrs := tc.AttributeValues()
	if attrs["bank_id"] != "gh.29.uk" {
		t.Fatalf("bank_id = %q", attrs["bank_id"])
	}
	if _, ok := attrs["view_id"]; ok {
		t.Fatal("empty view_id should be absent")
	}
}

func TestStoreCRUD(t *testing.T) {
	store, err := NewStore(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	id, err := store.Create(testConfig("sandbox", "simon"))
	if err != nil {
		t.Fatal(err)
	}
	if id == 0 {
		t.Fatal("expected non-zero id")
	}

	got, err := store.Get(id, "simon")
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "sandbox" || got.BankID != "gh.29.uk" {
		t.Fatalf("Get = %+v", got)
	}

	got.BankID = "obp.de"
	got.Name = "sandbox-de"
	if err := store.Update(got, "simon"); err != nil {
		t.Fatal(err)
	}
	got, err = store.Get(id, "simon")
	if err != nil {
		t.Fatal(err)
	}
	if got.BankID != "obp.de" || got.Name != "sandbox-de" {
		t.Fatalf("after update: %+v", got)
	}

	configs, err := store.List("simon")
	if err != nil {
		t.Fatal(err)
	}
	if len(configs) != 1 {
		t.Fatalf("List = %d configs", len(configs))
	}

	if err := store.Delete(id, "simon"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(id, "simon"); err != ErrNotFound {
		t.Fatalf("Get after delete = %v, want ErrNotFound", err)
	}
}

func TestStoreUniqueName(t *testing.T) {
	store, err := NewStore(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if _, err := store.Create(testConfig("sandbox", "simon")); err != nil {
		t.Fatal(err)
	}
	// Uniqueness holds across owners.
	if _, err := store.Create(testConfig("sandbox", "hongwei")); err == nil {
		t.Fatal("expected unique name violation")
	}
}

func TestStoreOwnershipScoping(t *testing.T) {
	store, err := NewStore(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	id, err := store.Create(testConfig("sandbox", "simon"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := store.Get(id, "hongwei"); err != ErrNotFound {
		t.Fatalf("foreign Get = %v, want ErrNotFound", err)
	}
	if err := store.Update(&TestConfiguration{ID: id, Name: "x", APIVersion: "OBPv4.1.0"}, "hongwei"); err != ErrNotFound {
		t.Fatalf("foreign Update = %v, want ErrNotFound", err)
	}
	if err := store.Delete(id, "hongwei"); err != ErrNotFound {
		t.Fatalf("foreign Delete = %v, want ErrNotFound", err)
	}
	configs, err := store.List("hongwei")
	if err != nil {
		t.Fatal(err)
	}
	if len(configs) != 0 {
		t.Fatalf("foreign List = %d configs, want 0", len(configs))
	}
}
