package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

func getHandler[T any](funcName string, get func(ctx context.Context, id int) (*T, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		result, err := get(c.Request.Context(), id)
		if err != nil {
			respondError(c, funcName, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func createHandler[I any, T any](funcName string, create func(ctx context.Context, input *I) (*T, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input I
		if !bindJSON(c, &input) {
			return
		}
		result, err := create(c.Request.Context(), &input)
		if err != nil {
			respondError(c, funcName, err)
			return
		}
		c.JSON(http.StatusCreated, result)
	}
}

func updateHandler[I any, T any](funcName string, update func(ctx context.Context, id int, input *I) (*T, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		var input I
		if !bindJSON(c, &input) {
			return
		}
		result, err := update(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, funcName, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func deleteHandler[T any](funcName string, del func(ctx context.Context, id int) (*T, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		if _, err := del(c.Request.Context(), id); err != nil {
			respondError(c, funcName, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// idActionHandler runs a body-less action on /:id and returns the updated record.
func idActionHandler[T any](funcName string, action func(ctx context.Context, id int) (*T, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		result, err := action(c.Request.Context(), id)
		if err != nil {
			respondError(c, funcName, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// listHandler parses the query with parse and answers with whatever list returns.
func listHandler[F any, R any](funcName string, parse func(q *queryParser) F, list func(ctx context.Context, filter F) (R, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := newQueryParser(c)
		filter := parse(q)
		if q.Err() {
			return
		}
		result, err := list(c.Request.Context(), filter)
		if err != nil {
			respondError(c, funcName, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}
