package e2e

import (
	"testing"
)

func TestBuildCorpus_Returns60Entities(t *testing.T) {
	c := BuildCorpus()
	if c.TotalDocs != 60 {
		t.Errorf("expected 60 entities, got %d", c.TotalDocs)
	}
	byType := c.ByType()
	if len(byType[TypeDatabase]) != 10 || len(byType[TypeTable]) != 30 || len(byType[TypeTopic]) != 20 {
		t.Errorf("unexpected type split: db=%d table=%d topic=%d",
			len(byType[TypeDatabase]), len(byType[TypeTable]), len(byType[TypeTopic]))
	}
}

func TestBuildCorpus_SignaturesAreUnique(t *testing.T) {
	c := BuildCorpus()
	seen := make(map[string]string)
	for _, e := range c.Entities {
		if other, ok := seen[e.Signature]; ok {
			t.Errorf("signature %q shared by %s and %s", e.Signature, other, e.GUID)
		}
		seen[e.Signature] = e.GUID
	}
}

func TestBuildCorpus_QueryTestCasesExist(t *testing.T) {
	c := BuildCorpus()
	if c.TotalQueries == 0 {
		t.Fatal("expected at least one query test case")
	}
	for i, tc := range c.TestCases {
		if tc.Query == "" {
			t.Errorf("test case %d: empty query", i)
		}
		if len(tc.ExpectedIDs) == 0 {
			t.Errorf("test case %d (%s): no expected IDs", i, tc.Description)
		}
		if tc.QueryType == "dsl" && tc.DataType == "" {
			t.Errorf("test case %d (%s): DSL case without data type", i, tc.Description)
		}
	}
}

func TestBuildCorpus_FullTextExpectedEntitiesContainTerm(t *testing.T) {
	c := BuildCorpus()
	byID := make(map[string]E2EEntity)
	for _, e := range c.Entities {
		byID[e.GUID] = e
	}
	for _, tc := range c.TestCases {
		if tc.QueryType != "full-text" {
			continue
		}
		for _, id := range tc.ExpectedIDs {
			e, ok := byID[id]
			if !ok {
				t.Errorf("expected ID %q not in corpus", id)
				continue
			}
			if !containsTerm(e, tc.Query) {
				t.Errorf("entity %q (name=%q) does not contain %q", id, e.Name, tc.Query)
			}
		}
	}
}

func TestCorpus_EntityInputs(t *testing.T) {
	c := BuildCorpus()
	inputs := c.EntityInputs()
	if len(inputs) != len(c.Entities) {
		t.Fatalf("expected %d inputs, got %d", len(c.Entities), len(inputs))
	}
	for i := range inputs {
		if inputs[i].GUID != c.Entities[i].GUID || inputs[i].TypeName != c.Entities[i].TypeName {
			t.Errorf("input[%d] = %+v", i, inputs[i])
		}
		if inputs[i].Attributes["qualifiedName"] != c.Entities[i].QualifiedName() {
			t.Errorf("input[%d] qualifiedName = %v", i, inputs[i].Attributes["qualifiedName"])
		}
	}
}

func TestContainsTerm(t *testing.T) {
	e := E2EEntity{TypeName: TypeTable, Name: "revenue_fact", Owner: "jane"}
	tests := []struct {
		term string
		want bool
	}{
		{"revenue", true},
		{"FACT", true},
		{"jane", true},
		{"inventory", false},
	}
	for _, tt := range tests {
		if got := containsTerm(e, tt.term); got != tt.want {
			t.Errorf("containsTerm(%q) = %v, want %v", tt.term, got, tt.want)
		}
	}
}
