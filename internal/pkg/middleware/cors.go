package middleware

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSMiddleware 允许所有来源，落地页和 API 不同源部署
// 允许的请求头与 Supabase 前端 SDK 发送的保持一致
func CORSMiddleware() gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	cfg.AllowAllOrigins = true
	cfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	cfg.AllowHeaders = []string{"authorization", "x-client-info", "apikey", "content-type", "x-signature"}
	return cors.New(cfg)
}
