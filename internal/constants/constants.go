package constants

// Environment variable names.
const (
	DATABASE_URL         = "DATABASE_URL"
	MIGRATIONS_DIR       = "MIGRATIONS_DIR"
	AUTO_MIGRATE         = "AUTO_MIGRATE"
	PORT                 = "PORT"
	JWT_SECRET           = "JWT_SECRET"
	TOKEN_TTL            = "TOKEN_TTL"
	LOG_LEVEL            = "LOG_LEVEL"
	CORS_ALLOWED_ORIGINS = "CORS_ALLOWED_ORIGINS"
	LOGIN_RATE_LIMIT     = "LOGIN_RATE_LIMIT"
	DB_MAX_CONNS         = "DB_MAX_CONNS"
	REQUEST_TIMEOUT      = "REQUEST_TIMEOUT"

	// Used only by integration tests.
	TEST_DATABASE_URL = "ATTENDANCE_TEST_DATABASE_URL"
)

// Roles carried in session tokens.
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
)

// ISO calendar date layout used on the wire and in the store.
const DateLayout = "2006-01-02"
