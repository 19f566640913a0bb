package whispen

// Name is the service name reported by the banner and health endpoints.
const Name = "Whispen API"

// Version is the API version.
const Version = "1.0.0"
