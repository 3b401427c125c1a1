package model

// DiffJob asks the worker to diff two consecutive versions of a document.
type DiffJob struct {
	DocumentID   string `json:"documentId"`
	OldVersionID string `json:"oldVersionId"`
	NewVersionID string `json:"newVersionId"`
}

// Diff is the published result of a DiffJob.
type Diff struct {
	DocumentID   string `json:"documentId" bson:"documentId"`
	OldVersionID string `json:"oldVersionId" bson:"oldVersionId"`
	NewVersionID string `json:"newVersionId" bson:"newVersionId"`
	OldVersion   int    `json:"oldVersion" bson:"oldVersion"`
	NewVersion   int    `json:"newVersion" bson:"newVersion"`
	Patch        string `json:"patch" bson:"patch"`
}
