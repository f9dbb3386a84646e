package main

import (
	"github.com/gin-gonic/gin"
	"github.com/payplanner/payplanner_backend/handlers"
	"github.com/payplanner/payplanner_backend/middlewares"
	"github.com/payplanner/payplanner_backend/models"
	"github.com/payplanner/payplanner_backend/workflow"
)

var (
	canView   = models.PermissionView
	canCreate = models.PermissionCreate
	canEdit   = models.PermissionEdit
	canDelete = models.PermissionDelete
	canExport = models.PermissionExport
)

// section groups the routes of one admin panel area behind its permission checks.
type section struct {
	name  string
	group *gin.RouterGroup
}

func newSection(parent *gin.RouterGroup, path string, name string) section {
	g := parent.Group(path)
	g.Use(middlewares.ActivityMiddleware(name))
	return section{name: name, group: g}
}

func (s section) handle(method string, path string, action models.PermissionAction, h gin.HandlerFunc) {
	s.group.Handle(method, path, middlewares.RequirePermission(s.name, action), h)
}

func (s section) GET(path string, action models.PermissionAction, h gin.HandlerFunc) {
	s.handle("GET", path, action, h)
}
func (s section) POST(path string, action models.PermissionAction, h gin.HandlerFunc) {
	s.handle("POST", path, action, h)
}
func (s section) PUT(path string, action models.PermissionAction, h gin.HandlerFunc) {
	s.handle("PUT", path, action, h)
}
func (s section) PATCH(path string, action models.PermissionAction, h gin.HandlerFunc) {
	s.handle("PATCH", path, action, h)
}
func (s section) DELETE(path string, action models.PermissionAction, h gin.HandlerFunc) {
	s.handle("DELETE", path, action, h)
}

// crud registers list/get/create/update/delete on the section root.
func (s section) crud(list, get, create, update, del gin.HandlerFunc) {
	s.GET("", canView, list)
	s.GET("/:id", canView, get)
	s.POST("", canCreate, create)
	s.PUT("/:id", canEdit, update)
	s.DELETE("/:id", canDelete, del)
}

func registerPaymentRoutes(api *gin.RouterGroup, version string) {
	payments := newSection(api, "/payments", models.SectionPayments)
	list := handlers.ListPayments()
	if version == "v2" {
		list = handlers.ListPaymentsPaged()
		payments.GET("/export", canExport, handlers.ExportPayments())
		payments.POST("/:id/mark-paid", canEdit, handlers.MarkPaymentPaid())
		payments.POST("/:id/reschedule", canEdit, handlers.ReschedulePayment())
	}
	payments.crud(list, handlers.GetPayment(), handlers.CreatePayment(), handlers.UpdatePayment(), handlers.DeletePayment())
}

func registerClientRoutes(api *gin.RouterGroup, version string) {
	clients := newSection(api, "/clients", models.SectionClients)
	cases := newSection(api, "/cases", models.SectionCases)
	stats := newSection(api, "/stats", models.SectionReports)
	if version == "v2" {
		clients.crud(handlers.ListClientsPaged(), handlers.GetClient(), handlers.CreateClient(), handlers.UpdateClient(), handlers.DeleteClient())
		clients.GET("/:id/stats", canView, handlers.GetClientStats())
		clients.GET("/:id/companies", canView, handlers.ListClientCompanies())
		clients.POST("/:id/companies", canEdit, handlers.LinkClientCompany())
		clients.DELETE("/:id/companies/:companyId", canEdit, handlers.UnlinkClientCompany())
		cases.crud(handlers.ListCasesPaged(), handlers.GetCase(), handlers.CreateCase(), handlers.UpdateCase(), handlers.DeleteCase())
		stats.GET("/summary", canView, handlers.StatsSummaryV2())
		return
	}
	clients.crud(handlers.ListClients(), handlers.GetClient(), handlers.CreateClient(), handlers.UpdateClient(), handlers.DeleteClient())
	cases.crud(handlers.ListCases(), handlers.GetCase(), handlers.CreateCase(), handlers.UpdateCase(), handlers.DeleteCase())
	stats.GET("/summary", canView, handlers.StatsSummary())
}

func registerDictionaryRoutes(api *gin.RouterGroup) {
	dictionaries := api.Group("/dictionaries")
	register := func(path string, h handlers.DictionaryHandlers) {
		s := newSection(dictionaries, path, models.SectionDictionaries)
		s.crud(h.List, h.Get, h.Create, h.Update, h.Delete)
		s.PATCH("/:id/toggle-active", canEdit, h.ToggleActive)
	}
	register("/deal-types", handlers.NewDictionaryHandlers[models.DealType]("DealType"))
	register("/income-types", handlers.NewDictionaryHandlers[models.IncomeType]("IncomeType"))
	register("/payment-sources", handlers.NewDictionaryHandlers[models.PaymentSource]("PaymentSource"))
	register("/payment-statuses", handlers.NewDictionaryHandlers[models.PaymentStatusEntity]("PaymentStatus"))
}

func registerRoutes(r *gin.Engine, sweeper *workflow.OverdueSweeper) {
	handlers.RegisterValidation()

	api := r.Group("/api")

	auth := api.Group("/auth")
	auth.Use(middlewares.ActivityMiddleware("auth"))
	auth.POST("/register", handlers.Register())
	auth.POST("/login", handlers.Login())

	secured := api.Group("")
	secured.Use(middlewares.AuthMiddleware())

	authed := secured.Group("/auth")
	authed.Use(middlewares.ActivityMiddleware("auth"))
	authed.GET("/me", handlers.Me())
	authed.POST("/change-password", handlers.ChangePassword())

	v1 := secured.Group("/v1")
	registerPaymentRoutes(v1, "v1")
	registerClientRoutes(v1, "v1")

	v2 := secured.Group("/v2")
	registerPaymentRoutes(v2, "v2")
	registerClientRoutes(v2, "v2")

	// unversioned alias kept for older admin panel builds
	registerPaymentRoutes(secured, "v1")

	newSection(secured, "/companies", models.SectionClients).
		crud(handlers.ListCompanies(), handlers.GetCompany(), handlers.CreateCompany(), handlers.UpdateCompany(), handlers.DeleteCompany())
	newSection(secured, "/contracts", models.SectionContracts).
		crud(handlers.ListContracts(), handlers.GetContract(), handlers.CreateContract(), handlers.UpdateContract(), handlers.DeleteContract())
	newSection(secured, "/invoices", models.SectionInvoices).
		crud(handlers.ListInvoices(), handlers.GetInvoice(), handlers.CreateInvoice(), handlers.UpdateInvoice(), handlers.DeleteInvoice())
	newSection(secured, "/acts", models.SectionActs).
		crud(handlers.ListActs(), handlers.GetAct(), handlers.CreateAct(), handlers.UpdateAct(), handlers.DeleteAct())

	registerDictionaryRoutes(secured)

	roles := newSection(secured, "/roles", models.SectionRoles)
	roles.crud(handlers.ListRoles(), handlers.GetRole(), handlers.CreateRole(), handlers.UpdateRole(), handlers.DeleteRole())
	roles.GET("/:id/permissions", canView, handlers.GetRolePermissions())
	roles.PUT("/:id/permissions", canEdit, handlers.SetRolePermissions())

	users := newSection(secured, "/users", models.SectionUsers)
	users.crud(handlers.ListUsers(), handlers.GetUser(), handlers.CreateUser(), handlers.UpdateUser(), handlers.DeleteUser())
	users.PATCH("/:id/approve", canEdit, handlers.ApproveUser())
	users.PATCH("/:id/toggle-active", canEdit, handlers.ToggleActiveUser())
	users.PUT("/:id/password", canEdit, handlers.SetUserPassword())

	activity := newSection(secured, "/user-activity", models.SectionActivity)
	activity.GET("", canView, handlers.ListUserActivity())

	documents := secured.Group("/documents")
	documents.Use(middlewares.ActivityMiddleware("documents"))
	documents.POST("", handlers.UploadDocument())
	documents.GET("", handlers.ListDocuments())
	documents.GET("/:id/download", handlers.DownloadDocument())
	documents.DELETE("/:id", handlers.DeleteDocument())

	calculator := newSection(secured, "/calculator/installments", models.SectionCalculator)
	calculator.GET("", canView, handlers.CalculateInstallments())
	calculator.POST("", canView, handlers.CalculateInstallments())
	calculator.GET("/export", canExport, handlers.ExportInstallments())

	admin := secured.Group("/admin")
	admin.Use(middlewares.RequireAdmin(), middlewares.ActivityMiddleware("admin"))
	admin.POST("/overdue-sweep", handlers.RunOverdueSweep(sweeper))
	admin.GET("/payment-events", handlers.ListPaymentEvents())
	admin.POST("/payment-events/:id/replay", handlers.ReplayPaymentEvent())
}
