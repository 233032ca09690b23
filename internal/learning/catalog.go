// Package learning holds the course catalog and cart routes. The data lives
// in memory and is seeded at startup.
package learning

import (
	"slices"
	"strings"
	"sync"
)

const (
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"
)

type Course struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Category        string   `json:"category"`
	Level           string   `json:"level"`
	Price           float64  `json:"price"`
	Instructor      string   `json:"instructor"`
	Rating          float64  `json:"rating"`
	DurationMinutes int      `json:"durationMinutes"`
	Description     string   `json:"description"`
	Syllabus        []string `json:"syllabus"`

	// Not part of any response contract.
	RevenueShare float64 `json:"revenueShare"`
}

// CourseFilter narrows List. Empty fields match everything.
type CourseFilter struct {
	Category string
	Level    string
	Search   string
}

func (f CourseFilter) match(c Course) bool {
	if f.Category != "" && !strings.EqualFold(c.Category, f.Category) {
		return false
	}
	if f.Level != "" && c.Level != f.Level {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(c.Title), q) && !strings.Contains(strings.ToLower(c.Description), q) {
			return false
		}
	}
	return true
}

// Catalog is a read-mostly course store.
type Catalog struct {
	mu      sync.RWMutex
	courses []Course
}

func NewCatalog(courses []Course) *Catalog {
	return &Catalog{courses: slices.Clone(courses)}
}

// List returns the page of matching courses and the total match count.
// page is 1-based.
func (c *Catalog) List(f CourseFilter, page, limit int) ([]Course, int) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var matched []Course
	for _, course := range c.courses {
		if f.match(course) {
			matched = append(matched, course)
		}
	}

	total := len(matched)
	start := (page - 1) * limit
	if start >= total || start < 0 {
		return []Course{}, total
	}
	end := min(start+limit, total)
	return slices.Clone(matched[start:end]), total
}

// Get returns the course with id.
func (c *Catalog) Get(id string) (Course, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, course := range c.courses {
		if course.ID == id {
			return course, true
		}
	}
	return Course{}, false
}

// SeedCourses is the catalog loaded at startup.
func SeedCourses() []Course {
	return []Course{
		{ID: "go-fundamentals", Title: "Go Fundamentals", Category: "programming", Level: LevelBeginner, Price: 49, Instructor: "Ada Park", Rating: 4.7, DurationMinutes: 420, Description: "Types, functions, packages and the standard toolchain.", Syllabus: []string{"Tour of Go", "Packages", "Testing"}, RevenueShare: 0.3},
		{ID: "go-concurrency", Title: "Concurrency in Go", Category: "programming", Level: LevelIntermediate, Price: 79, Instructor: "Ada Park", Rating: 4.8, DurationMinutes: 360, Description: "Goroutines, channels, contexts and the sync package.", Syllabus: []string{"Goroutines", "Channels", "Context"}, RevenueShare: 0.3},
		{ID: "http-services", Title: "Building HTTP Services", Category: "programming", Level: LevelIntermediate, Price: 89, Instructor: "Luis Ortega", Rating: 4.6, DurationMinutes: 480, Description: "Routers, middleware and JSON APIs.", Syllabus: []string{"Routing", "Middleware", "Validation"}, RevenueShare: 0.25},
		{ID: "sql-basics", Title: "SQL Basics", Category: "data", Level: LevelBeginner, Price: 39, Instructor: "Mina Shah", Rating: 4.5, DurationMinutes: 300, Description: "Queries, joins and indexes.", Syllabus: []string{"SELECT", "JOIN", "Indexes"}, RevenueShare: 0.3},
		{ID: "data-modeling", Title: "Data Modeling", Category: "data", Level: LevelIntermediate, Price: 69, Instructor: "Mina Shah", Rating: 4.4, DurationMinutes: 330, Description: "Normalization, keys and schema evolution.", Syllabus: []string{"Entities", "Normal forms", "Migrations"}, RevenueShare: 0.3},
		{ID: "query-tuning", Title: "Query Tuning", Category: "data", Level: LevelAdvanced, Price: 99, Instructor: "Mina Shah", Rating: 4.9, DurationMinutes: 270, Description: "Reading plans and fixing slow queries.", Syllabus: []string{"EXPLAIN", "Statistics", "Partitioning"}, RevenueShare: 0.2},
		{ID: "linux-shell", Title: "The Linux Shell", Category: "operations", Level: LevelBeginner, Price: 29, Instructor: "Sam Reid", Rating: 4.3, DurationMinutes: 240, Description: "Navigating, piping and scripting.", Syllabus: []string{"Files", "Pipes", "Scripts"}, RevenueShare: 0.35},
		{ID: "containers", Title: "Containers in Practice", Category: "operations", Level: LevelIntermediate, Price: 59, Instructor: "Sam Reid", Rating: 4.5, DurationMinutes: 390, Description: "Images, registries and runtime isolation.", Syllabus: []string{"Images", "Networking", "Volumes"}, RevenueShare: 0.3},
		{ID: "observability", Title: "Observability Foundations", Category: "operations", Level: LevelIntermediate, Price: 79, Instructor: "Jo Tanaka", Rating: 4.6, DurationMinutes: 300, Description: "Logs, metrics and traces that answer questions.", Syllabus: []string{"Structured logs", "Metrics", "Tracing"}, RevenueShare: 0.25},
		{ID: "incident-response", Title: "Incident Response", Category: "operations", Level: LevelAdvanced, Price: 109, Instructor: "Jo Tanaka", Rating: 4.7, DurationMinutes: 210, Description: "Running incidents and writing reviews.", Syllabus: []string{"Triage", "Communication", "Reviews"}, RevenueShare: 0.2},
		{ID: "web-security", Title: "Web Security Essentials", Category: "security", Level: LevelIntermediate, Price: 89, Instructor: "Priya Nair", Rating: 4.8, DurationMinutes: 360, Description: "CORS, CSRF, XSS and token handling.", Syllabus: []string{"Same-origin policy", "CORS", "Tokens"}, RevenueShare: 0.25},
		{ID: "threat-modeling", Title: "Threat Modeling", Category: "security", Level: LevelAdvanced, Price: 119, Instructor: "Priya Nair", Rating: 4.6, DurationMinutes: 240, Description: "Finding design flaws before attackers do.", Syllabus: []string{"Assets", "STRIDE", "Mitigations"}, RevenueShare: 0.2},
		{ID: "testing-go", Title: "Testing Go Code", Category: "programming", Level: LevelIntermediate, Price: 59, Instructor: "Luis Ortega", Rating: 4.5, DurationMinutes: 280, Description: "Table tests, fakes and httptest.", Syllabus: []string{"Table tests", "httptest", "Benchmarks"}, RevenueShare: 0.3},
		{ID: "distributed-systems", Title: "Distributed Systems Design", Category: "programming", Level: LevelAdvanced, Price: 129, Instructor: "Ada Park", Rating: 4.9, DurationMinutes: 540, Description: "Consensus, replication and failure handling.", Syllabus: []string{"Clocks", "Replication", "Consensus"}, RevenueShare: 0.2},
	}
}
