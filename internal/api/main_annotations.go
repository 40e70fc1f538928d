// @title           joe-pages API
// @version         1.0
// @description     Link-in-bio pages with slug availability checks. Authenticate with the token cookie or a Bearer token from /auth/login.
// @BasePath        /api
// @securityDefinitions.apikey BearerToken
// @in              header
// @name            Authorization
// @description     Type "Bearer" followed by a space and the token returned by /auth/login or /auth/register.
package api
