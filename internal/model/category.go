package model

// Category groups tasks. Count is a cache recomputed from the task collection.
type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}
