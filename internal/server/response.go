package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pullpaylabs/pullpay/pkg/db/pagination"
)

func respondData(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"data": data})
}

func respondList(c *gin.Context, data any, meta pagination.Meta) {
	c.JSON(http.StatusOK, gin.H{"data": data, "page_info": meta})
}
