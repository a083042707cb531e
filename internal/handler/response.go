package handler

import "github.com/gin-gonic/gin"

// Every endpoint wraps its payload in the same envelope: success carries
// data, failure carries a message.

type successEnvelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

type failureEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, successEnvelope{Success: true, Data: data})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, failureEnvelope{Success: false, Message: message})
}
