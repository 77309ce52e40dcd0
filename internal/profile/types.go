package profile

import "encoding/json"

// Profile holds the structured facts about a user inferred incrementally
// from conversation: education, skills, interests, and goals.
type Profile struct {
	Name        string   `json:"name"`
	Education   string   `json:"education"`
	Skills      []string `json:"skills"`
	Interests   []string `json:"interests"`
	CareerGoals string   `json:"career_goals"`
}

// TurnMessage is one side of a chat turn.
type TurnMessage struct {
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// ChatTurn is a single user/assistant exchange. Turns are immutable once
// created and identified by ID for deletion.
type ChatTurn struct {
	ID   string      `json:"id"`
	User TurnMessage `json:"user"`
	AI   TurnMessage `json:"ai"`
}

// CareerOption is one recommended career path.
type CareerOption struct {
	CareerName       string   `json:"career_name"`
	Description      string   `json:"description"`
	Pathway          []string `json:"pathway"`
	EducationPathway []string `json:"education_pathway"`
}

// SkillStatus tracks one pathway skill within a saved path. Score is nil
// until an assessment has been taken (or the skill was already known at
// save time, in which case it is 100).
type SkillStatus struct {
	Status string   `json:"status"` // "pending" or "complete"
	Score  *float64 `json:"score"`
}

const (
	SkillPending  = "pending"
	SkillComplete = "complete"
)

// SavedPath is a career option the user pinned into their compass, with
// per-skill progress tracking. Progress is derived, never authoritative:
// it must be recomputed on every SkillsStatus mutation.
type SavedPath struct {
	CareerOption
	SkillsStatus map[string]SkillStatus `json:"skills_status"`
	Progress     int                    `json:"progress"`
}

// Compass holds generated recommendations (fully replaced on each refresh)
// and the user's saved paths (unique by career name).
type Compass struct {
	Recommendations []CareerOption `json:"recommendations"`
	SavedPaths      []SavedPath    `json:"saved_paths"`
	LastUpdated     string         `json:"lastUpdated,omitempty"`
}

// UserRecord is the full per-user document.
type UserRecord struct {
	Email   string     `json:"email"`
	Profile Profile    `json:"profile"`
	Chats   []ChatTurn `json:"chats"`
	Compass Compass    `json:"compass"`
}

// NewUserRecord returns the skeleton document created on first contact.
func NewUserRecord(email string) UserRecord {
	return UserRecord{
		Email:   email,
		Profile: Skeleton(),
		Chats:   []ChatTurn{},
		Compass: Compass{
			Recommendations: []CareerOption{},
			SavedPaths:      []SavedPath{},
		},
	}
}

// Skeleton returns an empty profile with the complete field set.
func Skeleton() Profile {
	return Profile{
		Skills:    []string{},
		Interests: []string{},
	}
}

// DecodeRecord parses a stored user document, applying the skeleton for a
// missing document and filling any absent fields so the result always has
// the full structure. A non-empty email overrides a stale stored one.
func DecodeRecord(raw []byte, email string) (UserRecord, error) {
	if len(raw) == 0 {
		return NewUserRecord(email), nil
	}
	var rec UserRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return UserRecord{}, err
	}
	if rec.Profile.Skills == nil {
		rec.Profile.Skills = []string{}
	}
	if rec.Profile.Interests == nil {
		rec.Profile.Interests = []string{}
	}
	if rec.Chats == nil {
		rec.Chats = []ChatTurn{}
	}
	if rec.Compass.Recommendations == nil {
		rec.Compass.Recommendations = []CareerOption{}
	}
	if rec.Compass.SavedPaths == nil {
		rec.Compass.SavedPaths = []SavedPath{}
	}
	if email != "" {
		rec.Email = email
	}
	return rec, nil
}
