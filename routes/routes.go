package routes

import (
	"academias_go/controllers"

	"github.com/gofiber/fiber/v2"
)

// SetupRoutes configures all application routes
func SetupRoutes(app *fiber.App) {
	// Initialize controllers
	healthController := &controllers.HealthController{}
	semesterController := &controllers.SemesterController{}
	academyController := &controllers.AcademyController{}
	studentController := &controllers.StudentController{}
	enrollmentController := &controllers.EnrollmentController{}
	invoiceController := &controllers.InvoiceController{}
	paymentController := &controllers.PaymentController{}

	// API group
	api := app.Group("/api")

	api.Get("/health", healthController.GetHealthStatus)

	// Public routes (registration form)
	public := api.Group("/public")
	public.Get("/academies", academyController.GetAcademies)
	public.Post("/students/register", studentController.RegisterStudent)
	// Also expose at /api/students/register
	api.Post("/students/register", studentController.RegisterStudent)

	// Semester management
	semesters := api.Group("/semesters")
	semesters.Get("/", semesterController.GetSemesters)
	semesters.Post("/", semesterController.CreateSemester)

	// Academy and level management
	academies := api.Group("/academies")
	academies.Get("/", academyController.GetAcademies)
	academies.Get("/:id", academyController.GetAcademy)
	academies.Post("/", academyController.CreateAcademy)
	academies.Put("/:id", academyController.UpdateAcademy)
	academies.Post("/:id/levels", academyController.CreateLevel)

	// Student management
	students := api.Group("/students")
	students.Get("/", studentController.GetStudents)
	students.Get("/:id", studentController.GetStudent)
	students.Get("/:id/invoice", invoiceController.GetStudentInvoice)
	students.Put("/:id", studentController.UpdateStudent)
	students.Delete("/:id", studentController.DeleteStudent)

	// Enrollment management
	enrollments := api.Group("/enrollments")
	enrollments.Get("/", enrollmentController.GetEnrollments)
	enrollments.Post("/", enrollmentController.CreateEnrollment)
	enrollments.Put("/:id/withdraw", enrollmentController.WithdrawEnrollment)

	// Invoice management
	invoices := api.Group("/invoices")
	invoices.Get("/", invoiceController.GetInvoices)
	invoices.Get("/outstanding", invoiceController.GetOutstanding)
	invoices.Get("/:id", invoiceController.GetInvoice)
	invoices.Post("/", invoiceController.CreateInvoice)
	invoices.Post("/refresh", invoiceController.RefreshInvoice)
	invoices.Delete("/:id", invoiceController.DeleteInvoice)

	// Payment management
	payments := api.Group("/payments")
	payments.Get("/discount-preview", paymentController.PreviewDiscount)
	payments.Post("/", paymentController.CreatePayment)
	payments.Post("/bulk", paymentController.CreateBulkPayment)
	payments.Post("/refund", paymentController.CreateRefund)
	payments.Delete("/:id", paymentController.DeletePayment)
}
