package handlers

import (
	"github.com/gin-gonic/gin"
)

// All endpoints answer with the same envelope:
// { success, data?, count?, error? }.

func respondData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func respondList(c *gin.Context, status int, count int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"count":   count,
		"data":    data,
	})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error":   message,
	})
}
