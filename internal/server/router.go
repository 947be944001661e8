// internal/server/router.go
package server

import (
	"github.com/gin-gonic/gin"
	graphql "github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-go/relay"

	"github.com/gurkanbulca/tasknest/internal/middleware"
)

// NewRouter builds the API engine serving POST /graphql.
func NewRouter(schema *graphql.Schema, defaultOwner string) *gin.Engine {
	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.RequestLogger(),
		middleware.CORS(),
		middleware.NewContextExtractor(defaultOwner).Handler(),
	)

	r.POST("/graphql", gin.WrapH(&relay.Handler{Schema: schema}))
	return r
}
