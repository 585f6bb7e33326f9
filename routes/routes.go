package routes

import (
	"net/http"

	"articleqa/handlers"
	"articleqa/middleware"
	"articleqa/services"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	router *gin.Engine,
	questionHandler *handlers.QuestionHandler,
	tokenService *services.TokenService,
) {
	v1 := router.Group("/v1")
	v1.Use(middleware.AuthMiddleware(tokenService))
	{
		questions := v1.Group("/questions")
		{
			questions.POST("", questionHandler.CreateQuestion)
			questions.POST("/:questionId/answers", questionHandler.AddAnswer)
			questions.DELETE("/:questionId", questionHandler.DeleteQuestion)
			questions.DELETE("/:questionId/answers/:answerId", questionHandler.DeleteAnswer)
		}

		v1.GET("/articles/:articleId/questions", questionHandler.GetQuestionsByArticle)
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
