package models

// UserCardModel is a reader testimonial shown on the landing page.
type UserCardModel struct {
	Id     int     `json:"id" gorm:"primaryKey;autoIncrement"`
	Name   string  `json:"name" gorm:"type:varchar(255);not null"`
	Photo  string  `json:"photo" gorm:"type:text"`
	Review string  `json:"review" gorm:"type:text"`
	Rating float64 `json:"rating"`
}

func (UserCardModel) TableName() string { return "user_cards" }

// All returns every model the server migrates.
func All() []interface{} {
	return []interface{}{
		&BookModel{},
		&LoanModel{},
		&BorrowerModel{},
		&UserCardModel{},
	}
}
