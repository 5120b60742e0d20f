package view

import "sync"

// scrapeRefs tracks which course and assignment ids have been observed
// within this client's scrape run. Referential checks run against it so an
// entity can never point at a course or assignment that was never fetched.
// State is per client, nothing survives across scrape runs.
type scrapeRefs struct {
	mu          sync.Mutex
	courses     map[string]bool
	assignments map[string]bool
}

func newScrapeRefs() *scrapeRefs {
	return &scrapeRefs{
		courses:     map[string]bool{},
		assignments: map[string]bool{},
	}
}

func (r *scrapeRefs) noteCourse(id string) {
	r.mu.Lock()
	r.courses[id] = true
	r.mu.Unlock()
}

func (r *scrapeRefs) noteAssignment(id string) {
	r.mu.Lock()
	r.assignments[id] = true
	r.mu.Unlock()
}

func (r *scrapeRefs) hasCourse(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.courses[id]
}

func (r *scrapeRefs) hasAssignment(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.assignments[id]
}

func (r *scrapeRefs) coursesKnown() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.courses) > 0
}

type regradeKey struct {
	assignment string
	student    string
	question   string
}

// regradeDeduper drops repeats of a regrade's uniqueness tuple within a
// single listing pass. The source can render the same row across
// overlapping page boundaries, the first occurrence wins.
type regradeDeduper map[regradeKey]bool

func (d regradeDeduper) seen(r RegradeRequest) bool {
	key := regradeKey{
		assignment: r.AssignmentId,
		student:    r.StudentName,
		question:   r.QuestionNumber,
	}
	if d[key] {
		return true
	}
	d[key] = true
	return false
}
