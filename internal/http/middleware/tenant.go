package middleware

import (
	"net/http"
	"strings"

	"github.com/wolfman30/clinic-scheduling-platform/internal/tenancy"
)

// TenantHeader carries the caller's tenant on every scoped request.
const TenantHeader = "X-Tenant-Id"

// RequireTenant rejects requests without a tenant header and stores the
// tenant id in the request context for downstream handlers. Every read and
// write below this middleware is scoped to that tenant.
func RequireTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenantID := strings.TrimSpace(r.Header.Get(TenantHeader))
		if tenantID == "" {
			http.Error(w, "missing "+TenantHeader+" header", http.StatusBadRequest)
			return
		}
		ctx := tenancy.WithTenantID(r.Context(), tenantID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
