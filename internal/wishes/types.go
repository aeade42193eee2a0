package wishes

// Gender values accepted on a wish.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderSecret Gender = "secret"
)

// Valid reports whether g is one of the fixed genders.
func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderSecret:
		return true
	}
	return false
}

// Status is the lifecycle state of a wish. It only ever moves active -> released.
type Status string

const (
	StatusActive   Status = "active"
	StatusReleased Status = "released"
)

// ParseStatus converts a raw string into a Status.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusActive, StatusReleased:
		return Status(s), true
	}
	return "", false
}

// Wish is the item stored in the Wishes table and returned by the API.
type Wish struct {
	WishID    string `dynamodbav:"wishId" json:"wishId"` // PK
	UserID    string `dynamodbav:"userId" json:"userId"` // UserIdIndex PK
	Nickname  string `dynamodbav:"nickname" json:"nickname"`
	Content   string `dynamodbav:"content" json:"content"`
	Contact   string `dynamodbav:"contact,omitempty" json:"contact,omitempty"`
	Gender    Gender `dynamodbav:"gender" json:"gender"`
	CreatedAt int64  `dynamodbav:"createdAt" json:"createdAt"`         // epoch millis, StatusCreatedAtIndex SK
	Status    Status `dynamodbav:"status" json:"status"`               // StatusCreatedAtIndex PK
	TTL       int64  `dynamodbav:"ttl,omitempty" json:"ttl,omitempty"` // epoch seconds, DynamoDB only
}

// CreateInput is a validated, escaped wish submission.
type CreateInput struct {
	UserID   string
	Nickname string
	Content  string
	Contact  string
	Gender   Gender
}

// ListResult is one page of wishes. NextCursor is nil once the end is reached.
type ListResult struct {
	Wishes     []Wish  `json:"wishes"`
	NextCursor *string `json:"nextToken"`
}
