package util

import (
	"commerce-backend/config"
	"errors"

	"github.com/dgrijalva/jwt-go"
)

// 角色
const (
	RoleCustomer = "customer"
	RoleStaff    = "staff"
	RoleAdmin    = "admin"
)

// Claims 访问令牌中携带的身份信息。令牌由外部认证服务签发
type Claims struct {
	UserID int64
	Role   string
}

// ValidateToken 校验外部认证服务签发的令牌
func ValidateToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.New("令牌为空")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("不支持的签名算法")
		}
		return []byte(config.AppConfig.JWTSecret), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		userID, ok := claims["user_id"].(float64)
		if !ok {
			return nil, errors.New("无效的用户ID")
		}
		role, _ := claims["role"].(string)
		if role == "" {
			role = RoleCustomer
		}
		return &Claims{UserID: int64(userID), Role: role}, nil
	}

	return nil, errors.New("无效的令牌")
}
