package models

import "time"

const (
	MinScore = 1
	MaxScore = 10
)

type Review struct {
	ID        uint      `gorm:"primaryKey"`
	TitleID   uint      `gorm:"not null;uniqueIndex:idx_review_author_title,priority:2;index"`
	Title     *Title    `gorm:"foreignKey:TitleID;constraint:OnDelete:CASCADE"`
	AuthorID  uint      `gorm:"not null;uniqueIndex:idx_review_author_title,priority:1"`
	Author    Account   `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
	Text      string    `gorm:"type:text;not null"`
	Score     int       `gorm:"not null;check:chk_review_score,score >= 1 AND score <= 10"`
	PubDate   time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time
}

type Comment struct {
	ID       uint      `gorm:"primaryKey"`
	ReviewID uint      `gorm:"not null;index"`
	Review   *Review   `gorm:"foreignKey:ReviewID;constraint:OnDelete:CASCADE"`
	AuthorID uint      `gorm:"not null;index"`
	Author   Account   `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
	Text     string    `gorm:"type:text;not null"`
	PubDate  time.Time `gorm:"autoCreateTime;index"`
}
