package models

import "time"

// NotificationType is the closed set of notifications sent to pass holders.
type NotificationType string

const (
	NotificationOrientation                    NotificationType = "Orientation"
	NotificationMidterms                       NotificationType = "Midterms"
	NotificationDeliverableDegreeEnglish       NotificationType = "DeliverableDegree_English"
	NotificationDeliverableDegreeCertificate   NotificationType = "DeliverableDegree_Certificate"
	NotificationDeliverableDegreeSeminar       NotificationType = "DeliverableDegree_Seminar"
	NotificationRegistrationDegreeEnglish      NotificationType = "RegistrationDegree_English"
	NotificationRegistrationDegreeCertificate  NotificationType = "RegistrationDegree_Certificate"
	NotificationRegistrationDegreeSeminar      NotificationType = "RegistrationDegree_Seminar"
	NotificationPendingDocuments               NotificationType = "PendingDocuments"
	NotificationPaymentDue                     NotificationType = "PaymentDue"
	NotificationPreinscriptionExamTyT          NotificationType = "Preinscription_TyT"
	NotificationPreinscriptionExamPro          NotificationType = "Preinscription_ExamPro"
	NotificationGraduationByCity               NotificationType = "GraduationByCity"
	NotificationRequiredDocumentsForGraduation NotificationType = "RequiredDocumentsForGraduation"
)

// NotificationTypes lists every notification type in display order.
var NotificationTypes = []NotificationType{
	NotificationOrientation,
	NotificationMidterms,
	NotificationDeliverableDegreeEnglish,
	NotificationDeliverableDegreeCertificate,
	NotificationDeliverableDegreeSeminar,
	NotificationRegistrationDegreeEnglish,
	NotificationRegistrationDegreeCertificate,
	NotificationRegistrationDegreeSeminar,
	NotificationPendingDocuments,
	NotificationPaymentDue,
	NotificationPreinscriptionExamTyT,
	NotificationPreinscriptionExamPro,
	NotificationGraduationByCity,
	NotificationRequiredDocumentsForGraduation,
}

// NotificationContent is the title and body pushed to the wallet.
type NotificationContent struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type notificationCopy struct {
	label string
	body  string
}

// The label doubles as the notification title.
var notificationCatalogue = map[NotificationType]notificationCopy{
	NotificationOrientation: {
		label: "Inducción",
		body:  "La inducción es el proceso de inicio de un nuevo ciclo académico. Se realiza en el mes de septiembre y octubre de cada año. Es obligatorio para todos los estudiantes de la universidad.",
	},
	NotificationMidterms: {
		label: "Parciales",
		body:  "Los parciales son evaluaciones que se realizan en el transcurso del semestre. Son obligatorias para todos los estudiantes de la universidad.",
	},
	NotificationDeliverableDegreeEnglish: {
		label: "Entregable de opciones de grado: Inglés",
		body:  "El entregable de opciones de grado: Inglés es un documento que se entrega a los estudiantes de la universidad. Es obligatorio para todos los estudiantes de la universidad.",
	},
	NotificationDeliverableDegreeCertificate: {
		label: "Entregable de opciones de grado: Certificado",
		body:  "El entregable de opciones de grado: Certificado es un documento que se entrega a los estudiantes de la universidad. Es obligatorio para todos los estudiantes de la universidad.",
	},
	NotificationDeliverableDegreeSeminar: {
		label: "Entregable de opciones de grado: Seminario",
		body:  "El entregable de opciones de grado: Seminario es un documento que se entrega a los estudiantes de la universidad. Es obligatorio para todos los estudiantes de la universidad.",
	},
	NotificationRegistrationDegreeEnglish: {
		label: "Inscripción a opciones de grado: Inglés",
		body:  "La inscripción a opciones de grado: Inglés es el proceso de inscripción de un estudiante a una opción de grado. Es obligatorio para todos los estudiantes de la universidad.",
	},
	NotificationRegistrationDegreeCertificate: {
		label: "Inscripción a opciones de grado: Certificado",
		body:  "La inscripción a opciones de grado: Certificado es el proceso de inscripción de un estudiante a una opción de grado. Es obligatorio para todos los estudiantes de la universidad.",
	},
	NotificationRegistrationDegreeSeminar: {
		label: "Inscripción a opciones de grado: Seminario",
		body:  "La inscripción a opciones de grado: Seminario es el proceso de inscripción de un estudiante a una opción de grado. Es obligatorio para todos los estudiantes de la universidad.",
	},
	NotificationPendingDocuments: {
		label: "Documentos pendientes",
		body:  "Los documentos pendientes son documentos que se deben entregar a la universidad. Son obligatorios para todos los estudiantes de la universidad.",
	},
	NotificationPaymentDue: {
		label: "Pago pendiente",
		body:  "El pago pendiente es el pago que se debe realizar a la universidad. Es obligatorio para todos los estudiantes de la universidad.",
	},
	NotificationPreinscriptionExamTyT: {
		label: "Preinscripción: Pruebas TyT",
		body:  "Las pruebas TyT son pruebas que se realizan en el transcurso del semestre. Son obligatorias para todos los estudiantes de la universidad.",
	},
	NotificationPreinscriptionExamPro: {
		label: "Preinscripción: Pruebas Pro",
		body:  "Las pruebas Pro son pruebas que se realizan en el transcurso del semestre. Son obligatorias para todos los estudiantes de la universidad.",
	},
	NotificationGraduationByCity: {
		label: "Graduación por ciudad",
		body:  "La graduación por ciudad es la graduación que se realiza en la ciudad de la universidad. Es obligatoria para todos los estudiantes de la universidad.",
	},
	NotificationRequiredDocumentsForGraduation: {
		label: "Documentos requeridos para graduación",
		body:  "Los documentos requeridos para graduación son documentos que se deben entregar a la universidad. Son obligatorios para todos los estudiantes de la universidad.",
	},
}

// Valid reports whether t belongs to the closed set.
func (t NotificationType) Valid() bool {
	_, ok := notificationCatalogue[t]
	return ok
}

// Label returns the Spanish display label. Unknown types yield "".
func (t NotificationType) Label() string {
	return notificationCatalogue[t].label
}

// Content returns the title and body sent to wallets.
func (t NotificationType) Content() NotificationContent {
	c := notificationCatalogue[t]
	return NotificationContent{Title: c.label, Body: c.body}
}

// NotificationTypeInfo is the listing shape of a notification type.
type NotificationTypeInfo struct {
	Type    NotificationType    `json:"type"`
	Label   string              `json:"label"`
	Content NotificationContent `json:"content"`
}

// SendNotificationRequest targets every active pass matching Filter.
type SendNotificationRequest struct {
	Type      NotificationType `json:"type" validate:"required"`
	Filter    PassFilter       `json:"filter"`
	Platforms []WalletPlatform `json:"platforms" validate:"omitempty,dive,oneof=apple google"`
}

// NotificationDispatch summarises an accepted notification request.
type NotificationDispatch struct {
	Type       NotificationType `json:"type"`
	Queued     int              `json:"queued"`
	Skipped    int              `json:"skipped"`
	EnqueuedAt time.Time        `json:"enqueuedAt"`
}
