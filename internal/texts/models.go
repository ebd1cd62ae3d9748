package texts

// Text is an editable journal page keyed by a stable name
type Text struct {
	Key   string `json:"key" bson:"_id"`
	Title string `json:"title" bson:"title"`
	Text  string `json:"text" bson:"text"`
	Email string `json:"email,omitempty" bson:"email,omitempty"`
}

// CreateTextRequest is the payload for adding a page
type CreateTextRequest struct {
	Key   string `json:"key" binding:"required"`
	Title string `json:"title" binding:"required"`
	Text  string `json:"text"`
	Email string `json:"email"`
}

// UpdateTextRequest replaces a page's content
type UpdateTextRequest struct {
	Title string `json:"title" binding:"required"`
	Text  string `json:"text"`
	Email string `json:"email"`
}

const (
	HomePageKey        = "HomePage"
	SubmissionsPageKey = "SubmissionsPage"
)

// defaultTexts are written to an empty collection at startup
var defaultTexts = []Text{
	{Key: HomePageKey, Title: "Home Page", Text: "This is a journal about building API servers."},
	{Key: SubmissionsPageKey, Title: "Submissions Page", Text: "All submissions must be original work in Word format."},
}
