package contextkeys

// Custom key type avoids context collisions with other packages.
type contextKey string

// DBContextKey carries a *gorm.DB through the request context. Normally it
// is the connection pool; integration tests inject a transaction here so a
// whole request runs inside it and rolls back afterwards.
const DBContextKey = contextKey("db")
