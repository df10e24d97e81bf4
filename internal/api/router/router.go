package router

import (
	"context"
	"io"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/keyauth"

	"resume-optimizer/internal/api/handler"
	"resume-optimizer/internal/config"
)

// RegisterRoutes 注册 API 路由
func RegisterRoutes(h *server.Hertz, cfg *config.Config, optimizeHandler *handler.OptimizeHandler) {
	api := h.Group("/api/v1")

	// 配置了API Key时启用鉴权，健康检查除外
	if len(cfg.Server.APIKeys) > 0 {
		allowed := make(map[string]struct{}, len(cfg.Server.APIKeys))
		for _, key := range cfg.Server.APIKeys {
			allowed[key] = struct{}{}
		}
		api.Use(keyauth.New(
			keyauth.WithKeyLookUp("header:Authorization", "Bearer"),
			keyauth.WithValidator(func(ctx context.Context, c *app.RequestContext, key string) (bool, error) {
				_, ok := allowed[key]
				return ok, nil
			}),
		))
	}

	// 同步优化: 上传PDF与岗位描述，阻塞等待结果
	api.POST("/resume/optimize", func(c context.Context, ctx *app.RequestContext) {
		pdfData, jd, includeCoverLetter, ok := readOptimizeForm(ctx, cfg.Generator.CoverLetter)
		if !ok {
			return
		}

		result, err := optimizeHandler.HandleOptimizeSync(c, pdfData, jd, includeCoverLetter)
		if err != nil {
			ctx.JSON(handler.StatusCodeFor(err), utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, result)
	})

	// 异步优化: 入队后立即返回请求UUID
	api.POST("/resume/optimize/async", func(c context.Context, ctx *app.RequestContext) {
		pdfData, jd, includeCoverLetter, ok := readOptimizeForm(ctx, cfg.Generator.CoverLetter)
		if !ok {
			return
		}

		fileHeader, _ := ctx.FormFile("file")
		filename := ""
		if fileHeader != nil {
			filename = fileHeader.Filename
		}

		resp, err := optimizeHandler.HandleOptimizeAsync(c, pdfData, filename, jd, includeCoverLetter)
		if err != nil {
			ctx.JSON(handler.StatusCodeFor(err), utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusAccepted, resp)
	})

	// 异步任务状态查询
	api.GET("/resume/optimize/:uuid", func(c context.Context, ctx *app.RequestContext) {
		requestUUID := ctx.Param("uuid")
		resp, err := optimizeHandler.HandleJobStatus(c, requestUUID)
		if err != nil {
			ctx.JSON(handler.StatusCodeFor(err), utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	// 健康检查不走鉴权
	h.GET("/api/v1/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})
}

// readOptimizeForm 读取multipart表单中的PDF文件与岗位描述。
// 参数缺失时直接写出400响应并返回ok=false。
// include_cover_letter表单项省略时取配置的默认值。
func readOptimizeForm(ctx *app.RequestContext, defaultCoverLetter bool) (pdfData []byte, jd string, includeCoverLetter bool, ok bool) {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "文件未找到"})
		return nil, "", false, false
	}

	file, err := fileHeader.Open()
	if err != nil {
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "打开文件失败"})
		return nil, "", false, false
	}
	defer file.Close()

	pdfData = make([]byte, fileHeader.Size)
	if _, err := io.ReadFull(file, pdfData); err != nil {
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "读取文件失败"})
		return nil, "", false, false
	}

	jd = ctx.PostForm("job_description")
	if jd == "" {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "岗位描述不能为空"})
		return nil, "", false, false
	}

	includeCoverLetter = defaultCoverLetter
	if v := ctx.PostForm("include_cover_letter"); v != "" {
		includeCoverLetter, _ = strconv.ParseBool(v)
	}

	return pdfData, jd, includeCoverLetter, true
}
