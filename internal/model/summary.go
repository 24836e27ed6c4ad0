package model

// AuthorCount is one entry of a top-authors rollup.
type AuthorCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// TopEngagement is one entry of a top-engagements rollup.
type TopEngagement struct {
	Author   string `json:"author"`
	Content  string `json:"content"`
	Likes    int    `json:"likes"`
	Comments int    `json:"comments"`
}

// Interactions is likes plus comments.
func (t TopEngagement) Interactions() int {
	return t.Likes + t.Comments
}

// Summary is a derived, regenerable view of one day's records.
type Summary struct {
	Date           string          `json:"date"`
	Text           string          `json:"text"`
	Timestamp      int64           `json:"timestamp"` // epoch millis
	PostCount      int             `json:"postCount"`
	TopAuthors     []AuthorCount   `json:"topAuthors"`
	TopEngagements []TopEngagement `json:"topEngagements"`
}
