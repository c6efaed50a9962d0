package wbapi

import "time"

// Feedback represents a single customer review fetched from WB API.
// The official API uses strings for some IDs; to avoid precision loss we
// keep ID as string.
// Doc: https://dev.wildberries.ru/en/openapi/user-communication#/Feedbacks/get_feedbacks
type Feedback struct {
	ID               string    `json:"id"`
	UserName         string    `json:"userName"`
	Text             string    `json:"text"`
	Pros             string    `json:"pros"`
	Cons             string    `json:"cons"`
	ProductValuation int       `json:"productValuation"` // 1–5 stars, 0 = not rated
	CreatedDate      time.Time `json:"createdDate"`

	ProductDetails ProductDetails `json:"productDetails"`

	PhotoLinks []PhotoLink `json:"photoLinks"`
	Video      *Video      `json:"video"`

	Answer *Answer `json:"answer"`

	// Extended metadata, present only in the richest API variant.
	Bables               []string   `json:"bables"`
	WasViewed            bool       `json:"wasViewed"`
	IsAbleReturn         bool       `json:"isAbleReturnProductOrders"`
	ReturnDate           *time.Time `json:"returnProductOrdersDate"`
	Color                string     `json:"color"`
	SubjectName          string     `json:"subjectName"`
	ParentFeedbackID     string     `json:"parentFeedbackId"`
	ChildFeedbackID      string     `json:"childFeedbackId"`
	LastOrderShkID       int64      `json:"lastOrderShkId"`
	LastOrderCreatedDate *time.Time `json:"lastOrderCreatedAt"`
}

// HasMedia reports whether the review carries at least one photo or a video.
func (f Feedback) HasMedia() bool {
	return len(f.PhotoLinks) > 0 || f.Video != nil
}

// IsAnswered reports whether a reply has already been published marketplace-side.
func (f Feedback) IsAnswered() bool {
	return f.Answer != nil && f.Answer.Text != ""
}

// ProductDetails identifies the reviewed product.
type ProductDetails struct {
	ProductName     string `json:"productName"`
	BrandName       string `json:"brandName"`
	SupplierArticle string `json:"supplierArticle"`
	NmID            int64  `json:"nmId"`
}

// PhotoLink holds the two sizes WB serves per review photo.
type PhotoLink struct {
	FullSize string `json:"fullSize"`
	MiniSize string `json:"miniSize"`
}

// Video is the optional single review video.
type Video struct {
	PreviewImage string `json:"previewImage"`
	Link         string `json:"link"`
	DurationSec  int    `json:"durationSec"`
}

// Answer publication states as returned by the API. Anything else is
// surfaced as-is to the UI.
const (
	AnswerStateNone      = "none"
	AnswerStatePublished = "wbRu"
	AnswerStateSyncing   = "reviewRequired"
)

// Answer is the seller reply already submitted for a feedback.
type Answer struct {
	Text     string `json:"text"`
	State    string `json:"state"`
	Editable bool   `json:"editable"`
}

// Stats is the aggregate unanswered count and average valuation.
// Replaced wholesale on every successful fetch.
type Stats struct {
	CountUnanswered int     `json:"countUnanswered"`
	Valuation       float64 `json:"valuation"`
}

// feedbacksListData is the "data" envelope inside the list response.
type feedbacksListData struct {
	CountUnanswered int        `json:"countUnanswered"`
	Feedbacks       []Feedback `json:"feedbacks"`
}

// feedbacksListResp is the top-level response for GET /feedbacks
type feedbacksListResp struct {
	Data             feedbacksListData `json:"data"`
	Error            bool              `json:"error"`
	ErrorText        string            `json:"errorText"`
	AdditionalErrors interface{}       `json:"additionalErrors"`
}

// statsResp is the top-level response for GET /feedbacks/count-unanswered
type statsResp struct {
	Data             Stats       `json:"data"`
	Error            bool        `json:"error"`
	ErrorText        string      `json:"errorText"`
	AdditionalErrors interface{} `json:"additionalErrors"`
}

// answerRequest is the body for POST /feedbacks/answer
type answerRequest struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// genericResponse captures the common error envelope returned by WB.
type genericResponse struct {
	Data             interface{} `json:"data"`
	Error            bool        `json:"error"`
	ErrorText        string      `json:"errorText"`
	AdditionalErrors interface{} `json:"additionalErrors"`
}
