// Package guard decides whether a navigation may proceed.
//
// Every route carries Meta describing who may see it. Evaluate checks the
// meta of the target route against an Authorizer (normally *auth.Service)
// in a fixed order:
//
//  1. RequiresAuth and not authenticated: redirect to login, carrying the
//     original path in the redirect query parameter
//  2. GuestOnly and authenticated: redirect to home
//  3. Roles set and the current user holds none of them: redirect to denied
//
// Anything else is allowed. Table holds the application's named routes and
// resolves request paths to them.
package guard
