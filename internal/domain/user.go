package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// 角色是封闭集合
const (
	RoleAdmin = "ADMIN_ROLE"
	RoleUser  = "USER_ROLE"
)

func AllowedRole(name string) bool {
	return name == RoleAdmin || name == RoleUser
}

// User 聚合根。Username/Email 统一小写存储，唯一索引即大小写不敏感唯一。
// Status=false 的账号即使密码正确也不能登录；邮箱验证通过才置 true。
type User struct {
	ID           string `gorm:"primaryKey;size:36" json:"id"`
	Name         string `gorm:"size:64;not null" json:"name"`
	Surname      string `gorm:"size:64;not null" json:"surname"`
	Username     string `gorm:"uniqueIndex;size:64;not null" json:"username"`
	Email        string `gorm:"uniqueIndex;size:191;not null" json:"email"`
	PasswordHash string `gorm:"size:191;not null" json:"-"`
	Status       bool   `gorm:"not null;default:false" json:"status"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Profile    *UserProfile       `gorm:"foreignKey:UserID" json:"profile,omitempty"`
	EmailState *UserEmail         `gorm:"foreignKey:UserID" json:"emailState,omitempty"`
	ResetState *UserPasswordReset `gorm:"foreignKey:UserID" json:"-"`
	Roles      []UserRole         `gorm:"foreignKey:UserID" json:"roles,omitempty"`
}

func (User) TableName() string { return "users" }

// RoleName 取第一条角色关联，没有则回退 USER_ROLE
func (u *User) RoleName() string {
	if len(u.Roles) > 0 && u.Roles[0].Role != nil {
		return u.Roles[0].Role.Name
	}
	return RoleUser
}

func (u *User) HasRole(name string) bool {
	for _, ur := range u.Roles {
		if ur.Role != nil && ur.Role.Name == name {
			return true
		}
	}
	return false
}

type UserProfile struct {
	UserID         string    `gorm:"primaryKey;size:36" json:"-"`
	Phone          string    `gorm:"size:32" json:"phone"`
	ProfilePicture string    `gorm:"size:255" json:"profilePicture"`
	UpdatedAt      time.Time `json:"-"`
}

func (UserProfile) TableName() string { return "user_profiles" }

// UserEmail 验证通过后 token 字段清空，不可复用
type UserEmail struct {
	UserID                 string     `gorm:"primaryKey;size:36" json:"-"`
	EmailVerified          bool       `gorm:"not null;default:false" json:"emailVerified"`
	VerificationToken      *string    `gorm:"size:191;index" json:"-"`
	VerificationTokenUntil *time.Time `json:"-"`
}

func (UserEmail) TableName() string { return "user_emails" }

// UserPasswordReset 成功重置后 token 字段清空（数据层保证单次使用）
type UserPasswordReset struct {
	UserID          string     `gorm:"primaryKey;size:36" json:"-"`
	ResetToken      *string    `gorm:"size:191;index" json:"-"`
	ResetTokenUntil *time.Time `json:"-"`
}

func (UserPasswordReset) TableName() string { return "user_password_resets" }

type Role struct {
	ID   string `gorm:"primaryKey;size:36" json:"id"`
	Name string `gorm:"uniqueIndex;size:32;not null" json:"name"`
}

func (Role) TableName() string { return "roles" }

// UserRole 数据模型允许多条，但业务不变量是每账号至多一条有效关联，
// 由角色重指派的 replace-all-insert-one 事务保证。
type UserRole struct {
	ID     string `gorm:"primaryKey;size:36" json:"-"`
	UserID string `gorm:"size:36;index;not null" json:"-"`
	RoleID string `gorm:"size:36;index;not null" json:"-"`
	Role   *Role  `gorm:"foreignKey:RoleID" json:"role,omitempty"`
}

func (UserRole) TableName() string { return "user_roles" }

// UserDraft 注册时一个事务内落库的全部内容
type UserDraft struct {
	Name           string
	Surname        string
	Username       string
	Email          string
	PasswordHash   string
	Phone          string
	ProfilePicture string // 已归一化的文件名，空则用默认头像
}

// ProfilePatch 指针字段缺省即不更新
type ProfilePatch struct {
	Name           *string
	Surname        *string
	Username       *string
	Phone          *string
	ProfilePicture *string
}

type UserRepository interface {
	Create(ctx context.Context, draft UserDraft) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	FindByIdentifier(ctx context.Context, emailOrUsername string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	Exists(ctx context.Context, email, username string) (bool, error)

	FindByEmailVerificationToken(ctx context.Context, token string) (*User, error)
	FindByPasswordResetToken(ctx context.Context, token string) (*User, error)
	SetEmailVerificationToken(ctx context.Context, userID, token string, until time.Time) error
	MarkEmailVerified(ctx context.Context, userID string) error
	SetPasswordResetToken(ctx context.Context, userID, token string, until time.Time) error
	UpdatePassword(ctx context.Context, userID, newHash string) error
	UpdateProfile(ctx context.Context, userID string, patch ProfilePatch) (*User, error)

	List(ctx context.Context, offset, limit int, q string, withDeleted bool) ([]User, int64, error)
	SoftDelete(ctx context.Context, id string) error
}

type RoleRepository interface {
	FindByName(ctx context.Context, name string) (*Role, error)
	CountHolders(ctx context.Context, roleName string) (int64, error)
	RoleNames(ctx context.Context, userID string) ([]string, error)
	UsersByRole(ctx context.Context, roleName string) ([]User, error)
	// ReplaceUserRole 在一个事务里完成 last-admin 检查与 replace-all-insert-one
	ReplaceUserRole(ctx context.Context, userID, roleName string) error
	EnsureRoles(ctx context.Context, names ...string) error
}
