package models

// Bias labels attached to articles and posts. News outlets carry a static
// label; social posts are classified at search time.
const (
	BiasLeft  = "left"
	BiasRight = "right"
)

// Sentiment categories derived from the compound score.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// Comment is one node of a Reddit comment tree. Replies are nested up to a
// fixed depth; AutoModerator comments are skipped during collection.
type Comment struct {
	URL     string    `json:"url"`
	Content string    `json:"content"`
	Author  string    `json:"author"`
	Score   int       `json:"score"`
	Depth   int       `json:"depth"`
	Replies []Comment `json:"replies"`
}

// ArticleRecord is the unit stored per (session, url) and returned from
// /search. News articles and social posts share the shape; platform-specific
// fields are omitted when empty.
type ArticleRecord struct {
	Source         string  `json:"source"`
	Title          string  `json:"title"`
	URL            string  `json:"url"`
	Contents       string  `json:"contents"`
	Bias           string  `json:"bias,omitempty"`
	Sentiment      string  `json:"sentiment"`
	SentimentScore float64 `json:"sentiment_score"`
	Author         string  `json:"author,omitempty"`
	Date           int64   `json:"date,omitempty"`

	// Reddit
	Subreddit   string    `json:"subreddit,omitempty"`
	Score       int       `json:"score,omitempty"`
	NumComments int       `json:"num_comments,omitempty"`
	Comments    []Comment `json:"comments,omitempty"`

	// Bluesky
	Handle      string `json:"handle,omitempty"`
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Platform    string `json:"platform,omitempty"`
	Likes       int    `json:"likes,omitempty"`
	Reposts     int    `json:"reposts,omitempty"`
	Replies     int    `json:"replies,omitempty"`
	Quotes      int    `json:"quotes,omitempty"`

	AISummary string `json:"ai_summary,omitempty"`
}

// CommonGround is one shared-concern item inside an insights response.
type CommonGround struct {
	Title       string `json:"title"`
	BulletPoint string `json:"bullet_point"`
}

// Insights is the cross-partisan analysis produced for a set of session
// articles.
type Insights struct {
	KeyTakeawayLeft  string         `json:"key_takeaway_left"`
	KeyTakeawayRight string         `json:"key_takeaway_right"`
	CommonGround     []CommonGround `json:"common_ground"`
}
