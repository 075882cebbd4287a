package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/codemate/codemate/internal/runner"
	"github.com/codemate/codemate/internal/workspace"
	apperrors "github.com/codemate/codemate/pkg/errors"
	"github.com/codemate/codemate/pkg/logger"
	"github.com/codemate/codemate/pkg/metrics"
	"github.com/codemate/codemate/pkg/response"
)

// SyntaxErrorSentinel is the literal value clients receive for any failed
// execution. It deliberately does not distinguish compile errors from runtime
// errors from non-zero exits.
const SyntaxErrorSentinel = "SyntaxError"

// RunHandler exposes one code execution endpoint per supported runtime.
type RunHandler struct {
	executor runner.Executor
	log      *zap.Logger
}

// NewRunHandler constructs a handler delegating to the execution service.
func NewRunHandler(executor runner.Executor) *RunHandler {
	return &RunHandler{
		executor: executor,
		log:      logger.WithModule("run"),
	}
}

type runPayload struct {
	Runcode string `json:"runcode"`
}

// Handle returns the gin handler for one runtime endpoint. Successful runs
// reply with the captured stdout; failed runs reply with the sentinel. An
// execution failure never affects other sessions or rooms.
func (h *RunHandler) Handle(runtime string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !workspace.SupportedRuntime(runtime) {
			response.Error(c, apperrors.ErrUnknownRuntime)
			return
		}

		var payload runPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			response.Error(c, apperrors.NewBadRequest("invalid run payload"))
			return
		}

		start := time.Now()
		result, err := h.executor.Run(c.Request.Context(), runtime, payload.Runcode)
		metrics.ExecutionLatency.WithLabelValues(runtime).Observe(time.Since(start).Seconds())

		switch {
		case errors.Is(err, runner.ErrTimeout):
			// Expiry counts as an execution failure, same as a hung program.
			metrics.Executions.WithLabelValues(runtime, "failure").Inc()
			h.log.Warn("execution timed out", zap.String("runtime", runtime))
			c.JSON(http.StatusOK, SyntaxErrorSentinel)
		case err != nil:
			metrics.Executions.WithLabelValues(runtime, "failure").Inc()
			h.log.Error("execution service unavailable", zap.String("runtime", runtime), zap.Error(err))
			response.Error(c, apperrors.ErrExecutionFailed.WithInternal(err))
		case result.ExitCode != 0:
			metrics.Executions.WithLabelValues(runtime, "failure").Inc()
			c.JSON(http.StatusOK, SyntaxErrorSentinel)
		default:
			metrics.Executions.WithLabelValues(runtime, "success").Inc()
			c.JSON(http.StatusOK, result.Stdout)
		}
	}
}
