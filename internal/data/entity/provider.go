package entity

type Provider struct {
	Base
	Name  string `db:"name"`
	Email string `db:"email"`
}
