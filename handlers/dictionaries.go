package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/payplanner/payplanner_backend/models"
)

// DictionaryHandlers serves one lookup table (deal types, income types, ...).
type DictionaryHandlers struct {
	List, Get, Create, Update, Delete, ToggleActive gin.HandlerFunc
}

// NewDictionaryHandlers builds the handlers for dictionary T. ?activeOnly=true hides inactive entries.
func NewDictionaryHandlers[T any, PT models.DictionaryModel[T]](name string) DictionaryHandlers {
	return DictionaryHandlers{
		List: func(c *gin.Context) {
			q := newQueryParser(c)
			search := q.String("search")
			activeOnly := q.BoolPtr("activeOnly")
			if q.Err() {
				return
			}
			results, err := models.GetDictionaryEntries[T](c.Request.Context(), search, activeOnly != nil && *activeOnly)
			if err != nil {
				respondError(c, "List"+name, err)
				return
			}
			c.JSON(http.StatusOK, results)
		},
		Get:          getHandler("Get"+name, models.GetDictionaryEntry[T]),
		Create:       createHandler("Create"+name, models.CreateDictionaryEntry[T, PT]),
		Update:       updateHandler("Update"+name, models.UpdateDictionaryEntry[T, PT]),
		Delete:       deleteHandler("Delete"+name, models.DeleteDictionaryEntry[T, PT]),
		ToggleActive: idActionHandler("ToggleActive"+name, models.ToggleActiveModel[T]),
	}
}
