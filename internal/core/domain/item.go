package domain

// Item is a record retrieved from a remote endpoint and kept in the item store.
// ItemID is unique across the store.
type Item struct {
	ItemID      int64  `json:"item_id"     db:"item_id"`
	UserID      int64  `json:"user_id"     db:"user_id"`
	Title       string `json:"title"       db:"title"`
	Description string `json:"description" db:"description"`
}

// SimilarTo reports whether the item matches the owner, title and description exactly.
func (i *Item) SimilarTo(userID int64, title, description string) bool {
	return i.UserID == userID && i.Title == title && i.Description == description
}
