package auth

import (
	"errors"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrUsernameInvalid 用户名不合法
	ErrUsernameInvalid = errors.New("username must be 3-20 characters")
	// ErrPasswordInvalid 密码不合法
	ErrPasswordInvalid = errors.New("password must be at least 6 characters")
	// ErrPasswordTooLong 密码超出 bcrypt 的 72 字节上限
	ErrPasswordTooLong = errors.New("password must be at most 72 characters")
)

// HashPassword 哈希密码。
// 使用 bcrypt 加盐多轮哈希，同一密码每次产生不同摘要，
// 校验只能通过 CheckPassword 完成。
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword 检查密码是否与摘要匹配。
func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// ValidateUsername 验证用户名长度。
// 按字符计数而非字节，多字节用户名与单字节用户名遵循同样的 3-20 限制。
func ValidateUsername(username string) error {
	length := utf8.RuneCountInString(username)
	if length < 3 || length > 20 {
		return ErrUsernameInvalid
	}
	return nil
}

// ValidatePassword 验证密码强度。
// 上限按字节计，bcrypt 只处理前 72 字节。
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < 6 {
		return ErrPasswordInvalid
	}
	if len(password) > 72 {
		return ErrPasswordTooLong
	}
	return nil
}
