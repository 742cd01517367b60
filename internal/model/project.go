package model

type Project struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`
	Name    string `json:"name"`
	Ctime   int64  `json:"ctime"`
}
