package xerr

import (
	"errors"
	"fmt"
)

// 常用错误码定义
const (
	OK                 = 200
	ServerCommonError  = 500
	RequestParamsError = 400
	DbError            = 501
	RecordNotFound     = 404
)

// 业务错误码
const (
	ValidationError         = 1001 // 标识符/参数不合法
	ProviderError           = 1002 // 银行余额提供方失败
	ChainUnavailable        = 1003 // 链节点不可达/超时/熔断
	ConversionError         = 1004 // 汇率缺失或汇率服务失败
	InvalidRetentionRequest = 1005 // 清理请求没有任何筛选条件
)

type CodeError struct {
	Code  int    `json:"code"`
	Msg   string `json:"msg"`
	cause error
}

func (e *CodeError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("ErrCode:%d, Msg:%s, Cause:%v", e.Code, e.Msg, e.cause)
	}
	return fmt.Sprintf("ErrCode:%d, Msg:%s", e.Code, e.Msg)
}

func (e *CodeError) Unwrap() error { return e.cause }

func New(code int, msg string) error {
	return &CodeError{Code: code, Msg: msg}
}

func NewErrCode(code int) error {
	return &CodeError{Code: code, Msg: MapErrMsg(code)}
}

// Wrap 保留原始错误，errors.Is / errors.As 依然可用
func Wrap(err error, code int, msg string) error {
	if err == nil {
		return nil
	}
	return &CodeError{Code: code, Msg: msg, cause: err}
}

// CodeOf 取错误链上第一个 CodeError 的错误码，普通错误一律视为 ServerCommonError
func CodeOf(err error) int {
	if err == nil {
		return OK
	}
	var ce *CodeError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ServerCommonError
}

func IsCode(err error, code int) bool {
	return err != nil && CodeOf(err) == code
}

// MsgOf 对外可展示的文案
func MsgOf(err error) string {
	var ce *CodeError
	if errors.As(err, &ce) && ce.Msg != "" {
		return ce.Msg
	}
	return MapErrMsg(CodeOf(err))
}

func MapErrMsg(code int) string {
	switch code {
	case ServerCommonError:
		return "服务器开小差了"
	case RequestParamsError:
		return "参数错误"
	case DbError:
		return "数据库繁忙"
	case RecordNotFound:
		return "记录不存在"
	case ValidationError:
		return "标识符格式错误"
	case ProviderError:
		return "银行服务暂不可用"
	case ChainUnavailable:
		return "链节点不可用"
	case ConversionError:
		return "汇率转换失败"
	case InvalidRetentionRequest:
		return "Either olderThan or sessionId parameter is required"
	default:
		return "未知错误"
	}
}
