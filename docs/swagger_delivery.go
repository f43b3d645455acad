package docs

// @title           Delivery Tracking Service API
// @version         1.0
// @description     Accepts driver location and status updates for deliveries and streams them to subscribers over WebSocket.

// @host      localhost:3000
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
