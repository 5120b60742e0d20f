package view

// Role is the account's relationship to a course on the source.
type Role int

const (
	RoleInstructor Role = iota
	RoleStudent
)

func (r Role) String() string {
	switch r {
	case RoleStudent:
		return "student"
	default:
		return "instructor"
	}
}

// Ids are source-assigned and opaque, they are never parsed for structure.
type Course struct {
	Id        string
	ShortName string
	Name      string
	Role      Role
}

type Assignment struct {
	Id       string
	CourseId string
	Name     string
	Points   float64
}

// RegradeRequest has no source-assigned id of its own, its identity is the
// tuple (assignment id, student name, question number).
type RegradeRequest struct {
	AssignmentId   string
	StudentName    string
	QuestionNumber string
	QuestionTitle  string
	GraderName     string
	Href           string
	Completed      bool
}

type StudentSubmitter struct {
	Id    string
	Name  string
	Email string
}

type Submission struct {
	Id         string
	StudentIds []string
}

type SubmissionsMetadata struct {
	AssignmentId string
	Students     []StudentSubmitter
	Submissions  []Submission
}

// Students resolves a submission's submitters against the roster that came
// with the same metadata payload. Missing students are skipped, the source
// keeps submissions around after roster removals.
func (m SubmissionsMetadata) SubmitterMap() map[string][]StudentSubmitter {
	roster := make(map[string]StudentSubmitter, len(m.Students))
	for _, s := range m.Students {
		roster[s.Id] = s
	}

	out := make(map[string][]StudentSubmitter, len(m.Submissions))
	for _, sub := range m.Submissions {
		var students []StudentSubmitter
		for _, id := range sub.StudentIds {
			student, ok := roster[id]
			if ok {
				students = append(students, student)
			}
		}
		out[sub.Id] = students
	}
	return out
}
