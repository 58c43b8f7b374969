package service

import "go-opinions-api/internal/domain"

// UserView 对外的账号视图，不带哈希和 token 字段
type UserView struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Surname        string `json:"surname"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	ProfilePicture string `json:"profilePicture"`
	Role           string `json:"role"`
	Status         bool   `json:"status"`
	EmailVerified  bool   `json:"emailVerified"`
}

func NewUserView(u *domain.User) UserView {
	v := UserView{
		ID:       u.ID,
		Name:     u.Name,
		Surname:  u.Surname,
		Username: u.Username,
		Email:    u.Email,
		Role:     u.RoleName(),
		Status:   u.Status,
	}
	if u.Profile != nil {
		v.Phone = u.Profile.Phone
		v.ProfilePicture = u.Profile.ProfilePicture
	}
	if u.EmailState != nil {
		v.EmailVerified = u.EmailState.EmailVerified
	}
	return v
}
