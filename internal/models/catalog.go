package models

type Genre struct {
	ID   uint   `gorm:"primaryKey" json:"-"`
	Name string `gorm:"type:varchar(256);uniqueIndex;not null" json:"name"`
	Slug string `gorm:"type:varchar(50);uniqueIndex;not null" json:"slug"`
}

type Category struct {
	ID   uint   `gorm:"primaryKey" json:"-"`
	Name string `gorm:"type:varchar(256);uniqueIndex;not null" json:"name"`
	Slug string `gorm:"type:varchar(50);uniqueIndex;not null" json:"slug"`
}

type Title struct {
	ID          uint      `gorm:"primaryKey"`
	Name        string    `gorm:"type:varchar(256);index;not null"`
	Year        int       `gorm:"not null;index"`
	Description string    `gorm:"type:text"`
	CategoryID  *uint     `gorm:"index"`
	Category    *Category `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL"`
	Genres      []Genre   `gorm:"many2many:title_genres;constraint:OnDelete:CASCADE"`

	// Rating is the mean review score, filled by queries that select it.
	Rating *float64 `gorm:"->;-:migration"`
}
