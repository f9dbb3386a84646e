package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/payplanner/payplanner_backend/models"
)

type contractQuery struct {
	filter *models.ContractFilter
	sort   models.SortParams
	page   models.PageParams
}

func ListContracts() gin.HandlerFunc {
	parse := func(q *queryParser) contractQuery {
		return contractQuery{
			filter: &models.ContractFilter{
				ClientId: q.IntPtr("clientId"),
				Status:   models.ContractStatus(q.String("status")),
				From:     q.DatePtr("from"),
				To:       q.DatePtr("to"),
				Search:   q.String("search"),
			},
			sort: q.Sort(),
			page: q.Page(),
		}
	}
	return listHandler("ListContracts", parse, func(ctx context.Context, cq contractQuery) (*models.PagedResult[*models.Contract], error) {
		return models.GetContractsPaginated(ctx, cq.filter, cq.sort, cq.page)
	})
}

func GetContract() gin.HandlerFunc { return getHandler("GetContract", models.GetContract) }
func CreateContract() gin.HandlerFunc { return createHandler("CreateContract", models.CreateContract) }
func UpdateContract() gin.HandlerFunc { return updateHandler("UpdateContract", models.UpdateContract) }
func DeleteContract() gin.HandlerFunc { return deleteHandler("DeleteContract", models.DeleteContract) }

type invoiceQuery struct {
	filter *models.InvoiceFilter
	sort   models.SortParams
	page   models.PageParams
}

func ListInvoices() gin.HandlerFunc {
	parse := func(q *queryParser) invoiceQuery {
		return invoiceQuery{
			filter: &models.InvoiceFilter{
				ClientId:   q.IntPtr("clientId"),
				ContractId: q.IntPtr("contractId"),
				Status:     models.InvoiceStatus(q.String("status")),
				From:       q.DatePtr("from"),
				To:         q.DatePtr("to"),
				Search:     q.String("search"),
			},
			sort: q.Sort(),
			page: q.Page(),
		}
	}
	return listHandler("ListInvoices", parse, func(ctx context.Context, iq invoiceQuery) (*models.PagedResult[*models.Invoice], error) {
		return models.GetInvoicesPaginated(ctx, iq.filter, iq.sort, iq.page)
	})
}

func GetInvoice() gin.HandlerFunc { return getHandler("GetInvoice", models.GetInvoice) }
func CreateInvoice() gin.HandlerFunc { return createHandler("CreateInvoice", models.CreateInvoice) }
func UpdateInvoice() gin.HandlerFunc { return updateHandler("UpdateInvoice", models.UpdateInvoice) }
func DeleteInvoice() gin.HandlerFunc { return deleteHandler("DeleteInvoice", models.DeleteInvoice) }

type actQuery struct {
	filter *models.ActFilter
	sort   models.SortParams
	page   models.PageParams
}

func ListActs() gin.HandlerFunc {
	parse := func(q *queryParser) actQuery {
		return actQuery{
			filter: &models.ActFilter{
				ClientId:   q.IntPtr("clientId"),
				ContractId: q.IntPtr("contractId"),
				Status:     models.ActStatus(q.String("status")),
				From:       q.DatePtr("from"),
				To:         q.DatePtr("to"),
				Search:     q.String("search"),
			},
			sort: q.Sort(),
			page: q.Page(),
		}
	}
	return listHandler("ListActs", parse, func(ctx context.Context, aq actQuery) (*models.PagedResult[*models.Act], error) {
		return models.GetActsPaginated(ctx, aq.filter, aq.sort, aq.page)
	})
}

func GetAct() gin.HandlerFunc { return getHandler("GetAct", models.GetAct) }
func CreateAct() gin.HandlerFunc { return createHandler("CreateAct", models.CreateAct) }
func UpdateAct() gin.HandlerFunc { return updateHandler("UpdateAct", models.UpdateAct) }
func DeleteAct() gin.HandlerFunc { return deleteHandler("DeleteAct", models.DeleteAct) }

type companyQuery struct {
	search string
	sort   models.SortParams
	page   models.PageParams
}

func ListCompanies() gin.HandlerFunc {
	parse := func(q *queryParser) companyQuery {
		return companyQuery{search: q.String("search"), sort: q.Sort(), page: q.Page()}
	}
	return listHandler("ListCompanies", parse, func(ctx context.Context, cq companyQuery) (*models.PagedResult[*models.Company], error) {
		return models.GetCompaniesPaginated(ctx, cq.search, cq.sort, cq.page)
	})
}

func GetCompany() gin.HandlerFunc { return getHandler("GetCompany", models.GetCompany) }
func CreateCompany() gin.HandlerFunc { return createHandler("CreateCompany", models.CreateCompany) }
func UpdateCompany() gin.HandlerFunc { return updateHandler("UpdateCompany", models.UpdateCompany) }
func DeleteCompany() gin.HandlerFunc { return deleteHandler("DeleteCompany", models.DeleteCompany) }
