// Package e2e provides end-to-end tests with a generated catalog and many discovery queries.
package e2e

import (
	"fmt"
	"strings"

	"github.com/hyperjump/tansaku/internal/models"
)

// Corpus entity types. Each is written to a different import format by the fixtures.
const (
	TypeDatabase = "hive_db"
	TypeTable    = "hive_table"
	TypeTopic    = "kafka_topic"
)

// E2EEntity is a catalog entry in the corpus. Name is unique across the corpus and its
// first word is a signature no other entity shares.
type E2EEntity struct {
	GUID      string
	TypeName  string
	Name      string
	Owner     string
	Signature string
}

// QueryTestCase defines a discovery query and what the envelope must contain.
type QueryTestCase struct {
	Query       string
	QueryType   string // "dsl" or "full-text"
	DataType    string // expected for DSL queries only
	ExpectedIDs []string
	// Exact requires the result set to equal ExpectedIDs; otherwise they must all be present.
	Exact       bool
	Description string
}

// Corpus holds entities and query test cases for E2E tests.
type Corpus struct {
	Entities     []E2EEntity
	TestCases    []QueryTestCase
	TotalDocs    int
	TotalQueries int
}

var signatures = []string{
	"revenue", "inventory", "shipment", "payroll", "invoice", "campaign", "ledger", "warehouse",
	"clickstream", "telemetry", "churn", "forecast", "supplier", "refund", "checkout", "session",
	"catalogue", "pricing", "loyalty", "fraud", "booking", "itinerary", "claims", "premium",
	"dispatch", "routing", "tariff", "rebate", "voucher", "audit", "compliance", "onboarding",
	"recruiting", "benefits", "timesheet", "procurement", "contract", "warranty", "returns", "feedback",
	"survey", "sensor", "firmware", "outage", "incident", "backlog", "sprint", "release",
	"deployment", "billing", "subscription", "trial", "referral", "affiliate", "ranking", "keyword",
	"impression", "conversion", "attribution", "cohort",
}

var owners = []string{"jane", "joe", "amir", "mei", "olga"}

// BuildCorpus returns a corpus of 60 entities (10 databases, 30 tables, 20 topics) and the
// DSL and full-text query test cases that run against it.
func BuildCorpus() *Corpus {
	entities := buildEntities()
	cases := buildQueryTestCases(entities)
	return &Corpus{
		Entities:     entities,
		TestCases:    cases,
		TotalDocs:    len(entities),
		TotalQueries: len(cases),
	}
}

func buildEntities() []E2EEntity {
	layout := []struct {
		typeName string
		suffix   string
		count    int
	}{
		{TypeDatabase, "db", 10},
		{TypeTable, "fact", 30},
		{TypeTopic, "events", 20},
	}
	var out []E2EEntity
	i := 0
	for _, l := range layout {
		for n := 0; n < l.count; n++ {
			sig := signatures[i]
			out = append(out, E2EEntity{
				GUID:      fmt.Sprintf("e2e-%03d", i),
				TypeName:  l.typeName,
				Name:      sig + "_" + l.suffix,
				Owner:     owners[i%len(owners)],
				Signature: sig,
			})
			i++
		}
	}
	return out
}

func buildQueryTestCases(entities []E2EEntity) []QueryTestCase {
	var cases []QueryTestCase
	byTypeOwner := make(map[string][]string)
	for idx, e := range entities {
		byTypeOwner[e.TypeName+"/"+e.Owner] = append(byTypeOwner[e.TypeName+"/"+e.Owner], e.GUID)

		// Every third entity gets a DSL lookup by name; every entity gets a full-text lookup.
		if idx%3 == 0 {
			cases = append(cases, QueryTestCase{
				Query:       fmt.Sprintf("%s where name:%s", e.TypeName, e.Name),
				QueryType:   "dsl",
				DataType:    e.TypeName,
				ExpectedIDs: []string{e.GUID},
				Exact:       true,
				Description: "dsl name " + e.Name,
			})
		}
		cases = append(cases, QueryTestCase{
			Query:       e.Signature,
			QueryType:   "full-text",
			ExpectedIDs: []string{e.GUID},
			Description: "fulltext " + e.Signature,
		})
	}
	for _, typeName := range []string{TypeDatabase, TypeTable, TypeTopic} {
		owner := owners[0]
		cases = append(cases, QueryTestCase{
			Query:       fmt.Sprintf("%s where owner:%s", typeName, owner),
			QueryType:   "dsl",
			DataType:    typeName,
			ExpectedIDs: byTypeOwner[typeName+"/"+owner],
			Exact:       true,
			Description: "dsl owner " + typeName,
		})
	}
	return cases
}

// EntityInputs returns the corpus as indexer input, with explicit GUIDs.
func (c *Corpus) EntityInputs() []*models.EntityInput {
	out := make([]*models.EntityInput, len(c.Entities))
	for i, e := range c.Entities {
		out[i] = e.Input()
	}
	return out
}

// Input converts the entity to indexer input.
func (e E2EEntity) Input() *models.EntityInput {
	return &models.EntityInput{
		GUID:       e.GUID,
		TypeName:   e.TypeName,
		Attributes: e.Attributes(),
	}
}

// Attributes returns the entity's catalog attributes.
func (e E2EEntity) Attributes() map[string]interface{} {
	return map[string]interface{}{
		"name":          e.Name,
		"qualifiedName": e.QualifiedName(),
		"owner":         e.Owner,
	}
}

// QualifiedName is unique per entity.
func (e E2EEntity) QualifiedName() string {
	return fmt.Sprintf("%s.%s@prod", strings.TrimPrefix(e.TypeName, "hive_"), e.Name)
}

// ByType groups entities by type name, preserving corpus order.
func (c *Corpus) ByType() map[string][]E2EEntity {
	out := make(map[string][]E2EEntity)
	for _, e := range c.Entities {
		out[e.TypeName] = append(out[e.TypeName], e)
	}
	return out
}

// containsTerm reports whether term appears in the entity's searchable text.
func containsTerm(e E2EEntity, term string) bool {
	text := strings.ToLower(strings.ReplaceAll(e.TypeName+" "+e.Name+" "+e.QualifiedName()+" "+e.Owner, "_", " "))
	return strings.Contains(text, strings.ToLower(term))
}
