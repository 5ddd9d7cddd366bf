package directory

import "testing"

func TestResolveAfterReplace(t *testing.T) {
	d := New(nil)
	d.Replace([]Persona{
		{Number: "0", Label: "Operator", Provider: "mock"},
		{Number: "411", Label: "Directory Assistance", Provider: "mock"},
	})

	p, ok := d.Resolve("411")
	if !ok {
		t.Fatal("expected 411 to resolve")
	}
	if p.Label != "Directory Assistance" {
		t.Fatalf("unexpected label: %q", p.Label)
	}
	if _, ok := d.Resolve("911"); ok {
		t.Fatal("unconfigured number should not resolve")
	}
}

func TestReplaceSwapsWholeSnapshot(t *testing.T) {
	d := New(nil)
	d.Replace([]Persona{{Number: "0", Label: "Operator", Provider: "mock"}})
	d.Replace([]Persona{{Number: "1", Label: "Weather", Provider: "mock"}})

	if _, ok := d.Resolve("0"); ok {
		t.Fatal("old snapshot entry should be gone after replace")
	}
	if _, ok := d.Resolve("1"); !ok {
		t.Fatal("new snapshot entry should resolve")
	}
}

func TestReplaceSkipsEmptyNumbers(t *testing.T) {
	d := New(nil)
	d.Replace([]Persona{
		{Number: "", Label: "Nameless", Provider: "mock"},
		{Number: "0", Label: "Operator", Provider: "mock"},
	})

	if got := len(d.All()); got != 1 {
		t.Fatalf("expected 1 entry, got %d", got)
	}
}

func TestAllSortsByLabel(t *testing.T) {
	d := New(nil)
	d.Replace([]Persona{
		{Number: "2", Label: "Zeus", Provider: "mock"},
		{Number: "1", Label: "Athena", Provider: "mock"},
		{Number: "3", Label: "Hermes", Provider: "mock"},
	})

	all := d.All()
	want := []string{"Athena", "Hermes", "Zeus"}
	for i, label := range want {
		if all[i].Label != label {
			t.Fatalf("position %d: got %q, want %q", i, all[i].Label, label)
		}
	}
}
