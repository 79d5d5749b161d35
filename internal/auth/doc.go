// Package auth provides local authentication and role authorisation for
// clinicauth.
//
// Users and the active session live in two records of the shared store
// (see package store): app_users_v1 holds the user directory and
// app_session_v1 the single active session. Every context that opens the
// same store sees the same users and the same session; a login or logout
// in one context reaches the others through store change notifications.
//
// Passwords are never stored. Each user gets a random 16-byte salt and a
// PBKDF2-HMAC-SHA256 derived key (100000 iterations, 32 bytes), both
// persisted as lowercase hex.
//
// Roles form a closed set, User and Admin. Role strings are normalised on
// every read so a record written with "admin", " ADMIN " or "Admin" always
// means Admin and anything else means User.
//
// Service is the entry point:
//
//	svc, err := auth.NewService(auth.Deps{Store: st, Logger: log})
//	if err != nil {
//	    return err
//	}
//	if err := svc.Start(ctx); err != nil {
//	    return err
//	}
//	defer svc.Close()
//
//	unsubscribe := svc.Subscribe(func(s auth.State) { ... })
//	defer unsubscribe()
//
//	user, err := svc.Login(ctx, email, password)
package auth
