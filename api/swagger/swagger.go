package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Lesson Scheduler API",
        "description": "Availability, booking and reminder engine for driving lessons",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "in": "header", "name": "Authorization"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Lessons", "description": "Booking lifecycle"},
        {"name": "Availability", "description": "Instructor weekly templates and open slots"},
        {"name": "Calendar", "description": "Read-only lesson feeds"},
        {"name": "Notifications", "description": "In-app notifications"},
        {"name": "Reminders", "description": "Reminder sweep"}
    ],
    "paths": {
        "/lessons": {
            "post": {
                "tags": ["Lessons"],
                "summary": "Book a lesson",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BookLessonRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Date mismatch, slot not available or validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Instructor unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Timeslot conflicts with another lesson", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/lessons/{id}/cancel": {
            "post": {
                "tags": ["Lessons"],
                "summary": "Cancel an upcoming lesson",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Too late to cancel", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/lessons/{id}/reschedule": {
            "post": {
                "tags": ["Lessons"],
                "summary": "Move an upcoming lesson to another slot",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RescheduleLessonRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Timeslot conflicts with another lesson", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/lessons/{id}/complete": {
            "post": {
                "tags": ["Lessons"],
                "summary": "Mark a lesson as completed",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": false, "schema": {"$ref": "#/definitions/CompleteLessonRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/instructors/{id}/availability": {
            "get": {
                "tags": ["Availability"],
                "summary": "Get an instructor's weekly availability",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/instructors/me/availability": {
            "put": {
                "tags": ["Availability"],
                "summary": "Replace the calling instructor's weekly availability",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateAvailabilityRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid template", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/instructors/{id}/slots": {
            "get": {
                "tags": ["Availability"],
                "summary": "List open slots of an instructor",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "from", "in": "query", "required": true, "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "required": true, "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/me/reminders": {
            "get": {
                "tags": ["Reminders"],
                "summary": "Get the calling student's reminder preferences",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Student not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Reminders"],
                "summary": "Update the calling student's reminder preferences",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateReminderPreferencesRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid preferences", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/calendar/student": {
            "get": {
                "tags": ["Calendar"],
                "summary": "Calendar feed of the calling student",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/calendar/instructor": {
            "get": {
                "tags": ["Calendar"],
                "summary": "Calendar feed of the calling instructor",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/calendar/{role}/export": {
            "get": {
                "tags": ["Calendar"],
                "summary": "Download the caller's lessons",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "role", "in": "path", "required": true, "type": "string", "enum": ["student", "instructor"]},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}}
                }
            }
        },
        "/notifications": {
            "get": {
                "tags": ["Notifications"],
                "summary": "List the caller's notifications",
                "parameters": [
                    {"name": "unread", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/notifications/{id}/read": {
            "post": {
                "tags": ["Notifications"],
                "summary": "Mark a notification as read",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/reminders/sweep": {
            "post": {
                "tags": ["Reminders"],
                "summary": "Run a reminder sweep now",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "BookLessonRequest": {
            "type": "object",
            "required": ["instructor_id", "timeslot", "lesson_date"],
            "properties": {
                "instructor_id": {"type": "string"},
                "timeslot": {"type": "string", "example": "monday:09:00-10:00"},
                "lesson_date": {"type": "string", "example": "2030-01-07"}
            }
        },
        "RescheduleLessonRequest": {
            "type": "object",
            "required": ["timeslot", "lesson_date"],
            "properties": {
                "timeslot": {"type": "string"},
                "lesson_date": {"type": "string"}
            }
        },
        "CompleteLessonRequest": {
            "type": "object",
            "properties": {
                "notes": {"type": "string"}
            }
        },
        "DayAvailability": {
            "type": "object",
            "properties": {
                "available": {"type": "boolean"},
                "start": {"type": "string", "example": "09:00"},
                "end": {"type": "string", "example": "17:00"}
            }
        },
        "UpdateAvailabilityRequest": {
            "type": "object",
            "required": ["availability"],
            "properties": {
                "on_holiday": {"type": "boolean"},
                "availability": {"type": "object", "additionalProperties": {"$ref": "#/definitions/DayAvailability"}}
            }
        },
        "UpdateReminderPreferencesRequest": {
            "type": "object",
            "properties": {
                "reminder_hours": {"type": "integer", "minimum": 0, "maximum": 168},
                "reminders_opt_out": {"type": "boolean"},
                "locale": {"type": "string", "example": "en-GB"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
