// Package docs holds the general API annotations and the registered swagger document.
package docs

// @title MeetDesk API
// @version 1.0
// @description Meeting scheduling backend: staff and customer auth, customers, Zoom meetings, slots and Razorpay payments.

// @contact.name API Support
// @contact.email support@meetdesk.local

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:5000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT token.

// @tag.name auth
// @tag.description Staff registration, login and password reset
// @tag.name customer-auth
// @tag.description Customer signup with OTP verification
// @tag.name customers
// @tag.description Customer management
// @tag.name meetings
// @tag.description Zoom meetings
// @tag.name slots
// @tag.description Staff availability slots
// @tag.name payments
// @tag.description Razorpay checkout
// @tag.name users
// @tag.description Profile and user administration
