package model

import "time"

// 1主体（author_id + author_kind）につきカートは1つ
type Cart struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	AuthorID   int64     `gorm:"not null;uniqueIndex:idx_carts_author" json:"author_id"`
	AuthorKind ActorKind `gorm:"type:varchar(20);not null;uniqueIndex:idx_carts_author" json:"author_kind"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}

func (c Cart) OwnedBy(a Actor) bool {
	return c.AuthorID == a.ID && c.AuthorKind == a.Kind
}
