package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/payplanner/payplanner_backend/models"
)

type clientQuery struct {
	filter *models.ClientFilter
	sort   models.SortParams
	page   models.PageParams
}

func parseClientQuery(q *queryParser) clientQuery {
	return clientQuery{
		filter: &models.ClientFilter{
			Search:   q.String("search"),
			IsActive: q.BoolPtr("isActive"),
		},
		sort: q.Sort(),
		page: q.Page(),
	}
}

func ListClients() gin.HandlerFunc {
	return listHandler("ListClients", parseClientQuery, func(ctx context.Context, cq clientQuery) ([]*models.Client, error) {
		return models.GetClients(ctx, cq.filter, cq.sort)
	})
}

func ListClientsPaged() gin.HandlerFunc {
	return listHandler("ListClientsPaged", parseClientQuery, func(ctx context.Context, cq clientQuery) (*models.PagedResult[*models.Client], error) {
		return models.GetClientsPaginated(ctx, cq.filter, cq.sort, cq.page)
	})
}

func GetClient() gin.HandlerFunc {
	return getHandler("GetClient", models.GetClient)
}

func CreateClient() gin.HandlerFunc {
	return createHandler("CreateClient", models.CreateClient)
}

func UpdateClient() gin.HandlerFunc {
	return updateHandler("UpdateClient", models.UpdateClient)
}

func DeleteClient() gin.HandlerFunc {
	return deleteHandler("DeleteClient", models.DeleteClient)
}

func GetClientStats() gin.HandlerFunc {
	return getHandler("GetClientStats", models.GetClientStats)
}

func ListClientCompanies() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		results, err := models.GetClientCompanies(c.Request.Context(), id)
		if err != nil {
			respondError(c, "ListClientCompanies", err)
			return
		}
		c.JSON(http.StatusOK, results)
	}
}

func LinkClientCompany() gin.HandlerFunc {
	return updateHandler("LinkClientCompany", models.LinkClientCompany)
}

func UnlinkClientCompany() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		companyId, ok := paramId(c, "companyId")
		if !ok {
			return
		}
		if err := models.UnlinkClientCompany(c.Request.Context(), id, companyId); err != nil {
			respondError(c, "UnlinkClientCompany", err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

type caseQuery struct {
	filter *models.ClientCaseFilter
	sort   models.SortParams
	page   models.PageParams
}

func parseCaseQuery(q *queryParser) caseQuery {
	return caseQuery{
		filter: &models.ClientCaseFilter{
			ClientId: q.IntPtr("clientId"),
			Status:   models.CaseStatus(q.String("status")),
			Search:   q.String("search"),
		},
		sort: q.Sort(),
		page: q.Page(),
	}
}

func ListCases() gin.HandlerFunc {
	return listHandler("ListCases", parseCaseQuery, func(ctx context.Context, cq caseQuery) ([]*models.ClientCase, error) {
		return models.GetClientCases(ctx, cq.filter, cq.sort)
	})
}

func ListCasesPaged() gin.HandlerFunc {
	return listHandler("ListCasesPaged", parseCaseQuery, func(ctx context.Context, cq caseQuery) (*models.PagedResult[*models.ClientCase], error) {
		return models.GetClientCasesPaginated(ctx, cq.filter, cq.sort, cq.page)
	})
}

func GetCase() gin.HandlerFunc {
	return getHandler("GetCase", models.GetClientCase)
}

func CreateCase() gin.HandlerFunc {
	return createHandler("CreateCase", models.CreateClientCase)
}

func UpdateCase() gin.HandlerFunc {
	return updateHandler("UpdateCase", models.UpdateClientCase)
}

func DeleteCase() gin.HandlerFunc {
	return deleteHandler("DeleteCase", models.DeleteClientCase)
}
