package api

import "github.com/samcharles93/fitskit/internal/inspect"

type ResponseError struct {
	Message string `json:"message,omitempty"`
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Param   string `json:"param,omitempty"`
}

type VerifyResponse struct {
	Object   string                 `json:"object"`
	Valid    bool                   `json:"valid"`
	ReportID string                 `json:"report_id,omitempty"`
	Units    int                    `json:"units"`
	Issues   []inspect.IssueSummary `json:"issues"`
}

// ChecksumEncodeRequest carries a ones'-complement sum. Sum is a pointer so a
// missing field is distinguishable from zero.
type ChecksumEncodeRequest struct {
	Sum *uint32 `json:"sum"`
}

type ChecksumDecodeRequest struct {
	Text string `json:"text"`
}

type ChecksumResponse struct {
	Object string `json:"object"`
	Sum    uint32 `json:"sum"`
	Text   string `json:"text,omitempty"`
	Bytes  int    `json:"bytes,omitempty"`
}

type ReportList struct {
	Object string           `json:"object"`
	Data   []inspect.Report `json:"data"`
}

type DeleteReportResp struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}
